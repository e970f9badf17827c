package annotation

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"math/rand/v2"
	"strings"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const (
	// LinkClass forces a link even when the site does not link by default.
	LinkClass = "wl-link"
	// NoLinkClass always renders the plain label.
	NoLinkClass = "wl-no-link"
	// PageLinkClass is set on every emitted entity anchor.
	PageLinkClass = "wl-entity-page-link"
)

// EngineDeps wires the collaborators of the annotation engine.
type EngineDeps struct {
	Resolver   ports.EntityResolver
	Permalinks ports.PermalinkProvider
	Settings   ports.Settings
	Logger     *slog.Logger
	// Shuffle reorders alternative label candidates; defaults to math/rand.
	Shuffle func([]string)
}

// Engine replaces entity annotations in rendered content with links or plain labels.
type Engine struct {
	resolver   ports.EntityResolver
	permalinks ports.PermalinkProvider
	settings   ports.Settings
	logger     *slog.Logger
	shuffle    func([]string)
}

// NewEngine constructs the annotation engine.
func NewEngine(deps EngineDeps) *Engine {
	shuffle := deps.Shuffle
	if shuffle == nil {
		shuffle = func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		}
	}
	return &Engine{
		resolver:   deps.Resolver,
		permalinks: deps.Permalinks,
		settings:   deps.Settings,
		logger:     deps.Logger,
		shuffle:    shuffle,
	}
}

// Annotate substitutes every entity annotation in content. It never fails: feeds,
// content without annotations and unparsable markup are returned unchanged.
func (e *Engine) Annotate(ctx context.Context, content string) string {
	if IsFeed(ctx) {
		return content
	}

	matches, err := scan(content)
	if err != nil {
		e.warn("scan content", "error", err)
		return content
	}
	if len(matches) == 0 {
		return content
	}

	linkByDefault := e.linkByDefault(ctx)

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, m := range matches {
		if m.Start < last || m.End > len(content) {
			e.warn("inconsistent annotation span", "start", m.Start, "end", m.End)
			return content
		}
		b.WriteString(content[last:m.Start])
		b.WriteString(e.resolve(ctx, m, linkByDefault))
		last = m.End
	}
	b.WriteString(content[last:])

	e.debug("annotated content", "matches", len(matches))
	return b.String()
}

// ExtractEntityURIs returns the distinct entity URIs referenced by content in
// first-seen order.
func (e *Engine) ExtractEntityURIs(content string) []string {
	matches, err := scan(content)
	if err != nil {
		e.warn("scan content", "error", err)
		return []string{}
	}

	set := domain.NewURISet()
	for _, m := range matches {
		set.Add(m.URI)
	}
	return set.Values()
}

func (e *Engine) linkByDefault(ctx context.Context) bool {
	if e.settings == nil {
		return true
	}
	link, err := e.settings.LinkByDefault(ctx)
	if err != nil {
		e.warn("load link-by-default setting", "error", err)
		return true
	}
	return link
}

func (e *Engine) resolve(ctx context.Context, m Match, linkByDefault bool) string {
	plain := plainLabel(m.Label)
	if e.resolver == nil {
		return plain
	}

	item, err := e.resolver.ResolveByURI(ctx, m.URI)
	if err != nil {
		e.warn("resolve entity", "uri", m.URI, "error", err)
		return plain
	}
	if item == nil {
		e.debug("entity not found", "uri", m.URI)
		return plain
	}

	noLink := hasClassToken(m.Class, NoLinkClass)
	explicitLink := hasClassToken(m.Class, LinkClass)
	if noLink || (!linkByDefault && !explicitLink) {
		return plain
	}

	if e.permalinks == nil {
		return plain
	}
	permalink, err := e.permalinks.Permalink(ctx, item.ID)
	if err != nil || permalink == "" {
		e.warn("permalink unavailable", "id", item.ID, "error", err)
		return plain
	}

	return anchor(permalink, e.alternativeLabel(ctx, item.ID, plain), m.Label)
}

func anchor(href, title, label string) string {
	if title == "" {
		return fmt.Sprintf("<a class='%s' href='%s'>%s</a>", PageLinkClass, html.EscapeString(href), label)
	}
	return fmt.Sprintf("<a class='%s' title='%s' href='%s'>%s</a>",
		PageLinkClass, html.EscapeString(title), html.EscapeString(href), label)
}

func (e *Engine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
