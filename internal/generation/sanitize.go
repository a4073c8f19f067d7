package generation

import (
	"regexp"
	"strings"
)

// The model sometimes echoes the section labels from the output
// instruction back into the text fields. Each pattern strips one label
// shape from the front of the string.
var labelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(メイン投稿|本文)\s*[0-9０-９]*\s*[:：]\s*`),
	regexp.MustCompile(`^コメント欄?\s*[0-9０-９]*\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^(mainpost|main|comment[0-9]*)\s*[:：]\s*`),
}

// StripLabels removes echoed section labels from the front of a text
// field. Passes repeat until no pattern reduces the string further, so
// stacked labels ("メイン投稿: 本文: ...") are fully removed. If stripping
// consumes the whole string the original text is returned instead.
func StripLabels(text string) string {
	stripped := strings.TrimSpace(text)
	for {
		before := stripped
		for _, pattern := range labelPatterns {
			stripped = pattern.ReplaceAllString(stripped, "")
		}
		stripped = strings.TrimSpace(stripped)
		if stripped == before {
			break
		}
	}
	if stripped == "" {
		return text
	}
	return stripped
}
