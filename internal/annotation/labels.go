package annotation

import (
	"context"
	"html"
	"strings"
)

// alternativeLabel picks a synonym or the title of the entity that differs from the
// text of label, in random order. It returns "" when every candidate equals it.
func (e *Engine) alternativeLabel(ctx context.Context, id int64, label string) string {
	text := strings.TrimSpace(html.UnescapeString(label))
	var candidates []string

	labels, err := e.resolver.AlternativeLabels(ctx, id)
	if err != nil {
		e.warn("load alternative labels", "id", id, "error", err)
	}
	candidates = append(candidates, labels...)

	title, err := e.permalinks.Title(ctx, id)
	if err != nil {
		e.warn("load title", "id", id, "error", err)
	} else {
		candidates = append(candidates, title)
	}

	e.shuffle(candidates)

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(candidate), text) {
			return candidate
		}
	}
	return ""
}
