package jsonld

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// DefaultExcerptWords matches the usual blog excerpt length.
	DefaultExcerptWords = 55
	excerptMore         = "…"
)

var shortcodeExpr = regexp.MustCompile(`\[/?[A-Za-z][\w-]*[^\]]*\]`)

// Excerpter derives a plain-text description from post markup.
type Excerpter struct {
	policy *bluemonday.Policy
	words  int
}

// NewExcerpter builds an excerpter trimming to words; non-positive selects the default.
func NewExcerpter(words int) *Excerpter {
	if words <= 0 {
		words = DefaultExcerptWords
	}
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return &Excerpter{policy: policy, words: words}
}

// Excerpt prefers the manual excerpt and falls back to the trimmed body text.
func (e *Excerpter) Excerpt(manual, content string) string {
	if text := e.plain(manual); text != "" {
		return text
	}

	fields := strings.Fields(e.plain(shortcodeExpr.ReplaceAllString(content, " ")))
	if len(fields) > e.words {
		return strings.Join(fields[:e.words], " ") + excerptMore
	}
	return strings.Join(fields, " ")
}

func (e *Excerpter) plain(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	text := html.UnescapeString(e.policy.Sanitize(markup))
	return strings.Join(strings.Fields(text), " ")
}
