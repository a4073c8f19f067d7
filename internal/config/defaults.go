package config

// DefaultHookBuckets returns the built-in weighted hook patterns. Weights
// come from observed win rates per hook style and normalize to 100.
func DefaultHookBuckets() []HookBucket {
	return []HookBucket{
		{
			Type:   "denial",
			Weight: 35,
			Templates: []string{
				"まだ{theme}してる人、今月で終了です",
				"{theme}してる人、完全に時代遅れです。全部ズレてます",
				"{theme}、まだやってる人マジで終わってます",
				"やばいです。{theme}してる人、アカウント壊れます",
			},
		},
		{
			Type:   "warning",
			Weight: 20,
			Templates: []string{
				"{theme}、9割の人が間違ってます",
				"{theme}、知らない人多すぎて損してます",
				"{theme}、やってない人マジでもったいないです",
			},
		},
		{
			Type:   "number",
			Weight: 15,
			Templates: []string{
				"{theme}、2ヶ月でフォロワー2500名増えました",
				"{theme}、167万インプレッション達成した方法",
				"{theme}、832件のデータ分析で判明しました",
			},
		},
		{
			Type:   "authority",
			Weight: 10,
			Templates: []string{
				"Threadsの公式発表によると、{theme}",
				"Meta最新アップデート、{theme}",
				"Threads運用者必見、{theme}が変わります",
			},
		},
		{
			Type:   "emotion",
			Weight: 10,
			Templates: []string{
				"私が絶対やらない{theme}",
				"正直、{theme}は大嫌いです",
				"{theme}、イライラする人多すぎ",
			},
		},
		{
			Type:   "title",
			Weight: 10,
			Templates: []string{
				"【緊急】{theme}",
				"【知らないとヤバい】{theme}",
				"【完全保存版】{theme}",
			},
		},
	}
}

// DefaultThemes returns the built-in operation theme catalog used when no
// custom theme list is configured.
func DefaultThemes() []string {
	return []string{
		"Threadsでバズる投稿の書き方、完全公開します",
		"Threadsの長文投稿で10万インプレッションを超える方法",
		"Threadsのコメント欄活用で滞在時間を3倍にする技術",
		"Threadsのフックの書き方、データで証明された最強パターン",
		"Threadsのフォロワーが増えない人の共通点5つ",
		"Threads運用、1ヶ月で1600名増やした完全ロードマップ",
		"Threadsのエンゲージメント、投稿後30分が勝負な理由",
		"Threadsのいいね率、0.5%超えたら勝ち投稿の法則",
		"Threadsアルゴリズムの真実、活発さが全てだった",
		"Threadsのおすすめ欄、載る投稿と載らない投稿の違い",
		"Threadsの投稿時間、9割の人が間違えている最適タイミング",
		"Threadsの朝6-9時投稿、勝率43%の黄金時間帯",
		"Threadsプロフィールの自己紹介文、3行で完結させる書き方",
		"Threadsの質問投げかけ型フック、エンゲージメントを高める書き方",
		"Threadsのよくある間違い系投稿の作り方",
		"Threadsの番号付きリスト、平均インプレッションを高める使い方",
		"Threadsの勝ち投稿分析、10,000imp以上を出す7つの法則",
		"ThreadsのCTA設計、フォロー促進の書き方",
		"Threadsのいいね周り、時間の無駄すぎる理由",
		"Threadsのフォロー周り、やめたらフォロワー増えた話",
		"Threadsのいいね数、閲覧数と全く別の指標です",
		"Threadsの冒頭1行目、適当に書いてる人終わってます",
		"Threadsのアカウント崩壊、相互フォローが原因の9割",
		"Threadsのシャドウバン、いいね周りが引き金になる",
	}
}
