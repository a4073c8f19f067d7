package generation

import (
	"fmt"
	"strings"
)

// Placeholder comments are synthesized when the model returns fewer than
// two comments, so the batch keeps its shape instead of failing.
const (
	commentPlaceholder1 = "※コメント欄1に入れる補足・体験談をここに記述してください。"
	commentPlaceholder2 = "※コメント欄2では応用・注意喚起・CTAを補強してください。"
)

// GeneratedPost is one validated plan from a generation response. Comments
// always holds exactly two entries.
type GeneratedPost struct {
	PlanID        string
	TemplateID    string
	Theme         string
	ScheduledTime string
	MainPost      string
	Comments      []string
}

type rawPost struct {
	PlanID        string   `json:"planId"`
	TemplateID    string   `json:"templateId"`
	Theme         string   `json:"theme"`
	ScheduledTime string   `json:"scheduledTime"`
	MainPost      string   `json:"mainPost"`
	Main          string   `json:"main"`
	Comments      []string `json:"comments"`
}

// responseEnvelope accepts either a single post object or a posts array
type responseEnvelope struct {
	Post  *rawPost  `json:"post"`
	Posts []rawPost `json:"posts"`
}

func (e responseEnvelope) posts() []rawPost {
	if len(e.Posts) > 0 {
		return e.Posts
	}
	if e.Post != nil {
		return []rawPost{*e.Post}
	}
	return nil
}

// Validator checks response shape and enforces the topic-domain policy
type Validator struct {
	EnforcedTheme string
	ThemeKeywords []string
}

// ValidateBatch validates every post in the envelope. Batches are
// generated as one JSON document, so one invalid post fails the whole
// batch.
func (v *Validator) ValidateBatch(envelope responseEnvelope) ([]GeneratedPost, error) {
	raw := envelope.posts()
	if len(raw) == 0 {
		return nil, fmt.Errorf("response contains neither post nor posts")
	}

	validated := make([]GeneratedPost, 0, len(raw))
	for i, post := range raw {
		mainPost := post.MainPost
		if mainPost == "" {
			mainPost = post.Main
		}
		mainPost = StripLabels(strings.TrimSpace(mainPost))
		if strings.TrimSpace(mainPost) == "" {
			return nil, fmt.Errorf("post %d has no main text", i+1)
		}

		templateID := strings.TrimSpace(post.TemplateID)
		if templateID == "" {
			templateID = "auto-generated"
		}

		validated = append(validated, GeneratedPost{
			PlanID:        strings.TrimSpace(post.PlanID),
			TemplateID:    templateID,
			Theme:         v.enforceTheme(post.Theme),
			ScheduledTime: strings.TrimSpace(post.ScheduledTime),
			MainPost:      mainPost,
			Comments:      normalizeComments(post.Comments),
		})
	}
	return validated, nil
}

// normalizeComments truncates or pads to exactly two entries. Missing
// comments become placeholder guidance rather than failing the post.
func normalizeComments(comments []string) []string {
	placeholders := []string{commentPlaceholder1, commentPlaceholder2}
	normalized := make([]string, 2)
	for i := 0; i < 2; i++ {
		text := ""
		if i < len(comments) {
			text = StripLabels(strings.TrimSpace(comments[i]))
		}
		if strings.TrimSpace(text) == "" {
			text = placeholders[i]
		}
		normalized[i] = text
	}
	return normalized
}

// enforceTheme keeps model-chosen themes only when they match the keyword
// allowlist; otherwise the enforced theme leads.
func (v *Validator) enforceTheme(theme string) string {
	trimmed := strings.TrimSpace(theme)
	if trimmed == "" {
		return v.EnforcedTheme
	}
	lower := strings.ToLower(trimmed)
	for _, keyword := range v.ThemeKeywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return trimmed
		}
	}
	return v.EnforcedTheme + " - " + trimmed
}
