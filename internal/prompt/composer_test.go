package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threads-agent/internal/curation"
	"github.com/threads-agent/internal/models"
)

func TestBuildScheduleSlots(t *testing.T) {
	slots := BuildScheduleSlots(10, 7, 90)
	assert.Equal(t, []string{
		"07:00", "08:30", "10:00", "11:30", "13:00",
		"14:30", "16:00", "17:30", "19:00", "20:30",
	}, slots)
}

func TestBuildScheduleSlotsWrapsPastMidnight(t *testing.T) {
	slots := BuildScheduleSlots(4, 22, 90)
	assert.Equal(t, []string{"22:00", "23:30", "01:00", "02:30"}, slots)
}

func TestBuildScheduleSlotsZeroCount(t *testing.T) {
	assert.Empty(t, BuildScheduleSlots(0, 7, 90))
}

func testInput() Input {
	return Input{
		Account: models.AccountSummary{
			AverageFollowers:   1200,
			AverageProfileView: 340,
			FollowersChange:    25,
			ProfileViewsChange: -10,
		},
		Exemplars: []curation.Exemplar{
			{Post: models.ScoredPost{
				Post: models.Post{Content: "テスト投稿本文", Impressions: 35000, FollowersDelta: 120},
				Tier: models.TierS,
			}},
			{Post: models.ScoredPost{
				Post: models.Post{Content: "構成だけ参考にする投稿", Impressions: 22000, FollowersDelta: 60},
				Tier: models.TierA,
			}, StructureOnly: true},
		},
		Requests: []ThemedRequest{
			{Theme: "まだ手動で下書きしてる人、損してます", HookType: "denial", ScheduledTime: "07:00"},
			{Theme: "Threads運用3つの数字", HookType: "number", ScheduledTime: "08:30"},
		},
		EnforcedTheme: "Threads運用ノウハウ",
		ThemeKeywords: []string{"threads", "運用", "sns"},
	}
}

func TestComposeBatchSectionOrder(t *testing.T) {
	composer := NewComposer()
	out := composer.ComposeBatch(testInput())

	// Fixed order: style guide, account, exemplars, request, output format.
	positions := []int{
		strings.Index(out, "# MISSION"),
		strings.Index(out, "# アカウントの現状"),
		strings.Index(out, "# 参考にする高パフォーマンス投稿"),
		strings.Index(out, "# 今回の生成依頼"),
		strings.Index(out, "# JSON出力仕様"),
	}
	for i, pos := range positions {
		assert.GreaterOrEqualf(t, pos, 0, "section %d missing", i)
		if i > 0 {
			assert.Greater(t, pos, positions[i-1])
		}
	}
}

func TestComposeBatchInlinesExemplarStats(t *testing.T) {
	out := NewComposer().ComposeBatch(testInput())

	assert.Contains(t, out, "35,000imp")
	assert.Contains(t, out, "フォロワー増120名")
	assert.Contains(t, out, "tier_S")
	assert.Contains(t, out, "テスト投稿本文")
	assert.Contains(t, out, "構成のみ参考（テーマは絶対に真似しない）")
}

func TestComposeBatchListsEveryRequest(t *testing.T) {
	in := testInput()
	out := NewComposer().ComposeBatch(in)

	for _, req := range in.Requests {
		assert.Contains(t, out, req.Theme)
		assert.Contains(t, out, req.ScheduledTime)
	}
	assert.Contains(t, out, "posts は必ず 2 件")
	assert.Contains(t, out, "150-200文字")
	assert.Contains(t, out, "400-600文字")
	assert.Contains(t, out, "threads, 運用, sns")
}

func TestComposeBatchEmptyPoolFallback(t *testing.T) {
	in := testInput()
	in.Exemplars = nil
	out := NewComposer().ComposeBatch(in)

	assert.Contains(t, out, curation.EmptyPoolFallback)
	assert.NotContains(t, out, "参考例1")
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "999", formatCount(999))
	assert.Equal(t, "1,000", formatCount(1000))
	assert.Equal(t, "12,345", formatCount(12345))
	assert.Equal(t, "1,234,567", formatCount(1234567))
}
