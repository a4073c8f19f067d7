package prompt

import (
	"fmt"
	"strings"

	"github.com/threads-agent/internal/curation"
	"github.com/threads-agent/internal/models"
)

// jsonSchemaExample shows the model the exact response envelope. The batch
// request asks for every plan in one posts array.
const jsonSchemaExample = `{
  "posts": [
    {
      "planId": "plan-01",
      "templateId": "hook_negate_v3",
      "theme": "Threads運用で月30時間削減",
      "scheduledTime": "07:00",
      "mainPost": "...150-200文字...",
      "comments": ["...400-600文字...", "...400-600文字..."]
    }
  ]
}`

// ThemedRequest is one plan slot in a batch: a hook-applied theme plus its
// recommended posting time.
type ThemedRequest struct {
	Theme         string
	HookType      string
	ScheduledTime string
}

// Input carries everything the composer inlines into a batch prompt
type Input struct {
	Account       models.AccountSummary
	Exemplars     []curation.Exemplar
	Trending      []models.TrendingTheme
	Templates     []models.TemplateSummary
	Requests      []ThemedRequest
	EnforcedTheme string
	ThemeKeywords []string
}

// Composer assembles generation prompts in a fixed section order: style
// guide, account context, exemplars with stats, per-slot themes, output
// format instruction.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// ComposeBatch builds the single prompt that produces all requested plans
// in one generation call.
func (c *Composer) ComposeBatch(in Input) string {
	sections := []string{
		StyleGuide,
		c.accountSection(in.Account),
		c.exemplarSection(in.Exemplars),
		c.trendingSection(in.Trending),
		c.templateSection(in.Templates),
		c.requestSection(in),
		c.outputSection(in),
	}
	return strings.Join(sections, "\n\n")
}

func (c *Composer) accountSection(summary models.AccountSummary) string {
	return fmt.Sprintf(`# アカウントの現状
- 平均フォロワー: %d / 平均プロフ閲覧: %d
- 最新増減 フォロワー %+d・プロフ閲覧 %+d`,
		summary.AverageFollowers, summary.AverageProfileView,
		summary.FollowersChange, summary.ProfileViewsChange)
}

func (c *Composer) exemplarSection(exemplars []curation.Exemplar) string {
	var b strings.Builder
	b.WriteString("# 参考にする高パフォーマンス投稿\n")
	b.WriteString("以下の投稿の構成・文体・リズム・表現をトレースしてください。\n")

	if len(exemplars) == 0 {
		b.WriteString(curation.EmptyPoolFallback)
		return b.String()
	}

	for i, ex := range exemplars {
		label := ""
		if ex.Flagship {
			label = " / 最重要参考"
		} else if ex.StructureOnly {
			label = " / 構成のみ参考（テーマは絶対に真似しない）"
		}
		fmt.Fprintf(&b, "\n### 参考例%d（%simp / フォロワー増%d名 / %s%s）\n%s\n",
			i+1, formatCount(ex.Post.Impressions), ex.Post.FollowersDelta,
			ex.Post.Tier, label, ex.Post.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Composer) trendingSection(trending []models.TrendingTheme) string {
	if len(trending) == 0 {
		return "# 直近の伸びているジャンル\n- データなし。強制テーマを軸にしてください。"
	}
	var b strings.Builder
	b.WriteString("# 直近の伸びているジャンル\n")
	for _, theme := range trending {
		fmt.Fprintf(&b, "- %s（フォロワー増平均 %+.1f / 閲覧平均 %.0f）\n",
			theme.ThemeTag, theme.AvgFollowersDelta, theme.AvgViews)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Composer) templateSection(templates []models.TemplateSummary) string {
	if len(templates) == 0 {
		return "# 推奨テンプレート候補\n- hook_negate_v3 / hook_before_after など既存命名を活用。"
	}
	var b strings.Builder
	b.WriteString("# 推奨テンプレート候補\n")
	for _, template := range templates {
		info := make([]string, 0, 3)
		if template.StructureNotes != "" {
			info = append(info, template.StructureNotes)
		}
		if template.ImpressionAvg > 0 {
			info = append(info, fmt.Sprintf("閲覧平均%.0f", template.ImpressionAvg))
		}
		if template.LikeAvg > 0 {
			info = append(info, fmt.Sprintf("いいね平均%.0f", template.LikeAvg))
		}
		fmt.Fprintf(&b, "- %s [%s] %s\n", template.TemplateID, template.Status, strings.Join(info, " / "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Composer) requestSection(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 今回の生成依頼（合計 %d 本）\n", len(in.Requests))
	for i, req := range in.Requests {
		fmt.Fprintf(&b, "## 投稿%d\n- テーマ: %s\n- フック型: %s\n- 推奨投稿時刻: %s\n",
			i+1, req.Theme, req.HookType, req.ScheduledTime)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Composer) outputSection(in Input) string {
	return fmt.Sprintf(`# JSON出力仕様
- 返答は %s 形式のみ。追加テキスト禁止。
- posts は必ず %d 件、依頼順に返すこと。
- mainPost は「メイン投稿」、comments[0] は「コメント欄1」、comments[1] は「コメント欄2」。
- 文字数目安: mainPost 150-200文字、comments 400-600文字。
- theme には必ず次のいずれかのキーワードを含める: %s
- 強制テーマ: %s`,
		jsonSchemaExample, len(in.Requests),
		strings.Join(in.ThemeKeywords, ", "), in.EnforcedTheme)
}

func formatCount(n int) string {
	// 12345 -> "12,345"
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		b.WriteString(s[:offset])
	}
	for i := offset; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
