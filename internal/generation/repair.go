package generation

import (
	"regexp"
	"strings"
)

// The repair pass is an ordered list of pure string transforms. Each one
// handles a malformation the model is known to emit; keeping them separate
// keeps each independently testable.
type repairTransform struct {
	name  string
	apply func(string) string
}

var repairTransforms = []repairTransform{
	{"strip_code_fences", stripCodeFences},
	{"strip_trailing_commas", stripTrailingCommas},
	{"normalize_smart_quotes", normalizeSmartQuotes},
	{"strip_invisible_chars", stripInvisibleChars},
}

// Repair runs every transform in order. The result is a fixed point:
// repairing already-repaired text changes nothing.
func Repair(text string) string {
	for _, t := range repairTransforms {
		text = t.apply(text)
	}
	return strings.TrimSpace(text)
}

func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

var trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)

func stripTrailingCommas(text string) string {
	return trailingCommaPattern.ReplaceAllString(text, "$1")
}

var smartQuoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

func normalizeSmartQuotes(text string) string {
	return smartQuoteReplacer.Replace(text)
}

var invisibleCharReplacer = strings.NewReplacer(
	"\u00a0", "", "\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "",
)

func stripInvisibleChars(text string) string {
	return invisibleCharReplacer.Replace(text)
}
