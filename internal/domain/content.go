package domain

import "errors"

// ErrNotFound reports a content item that does not exist in the store.
var ErrNotFound = errors.New("content item not found")

// ContentItem is a stored post or entity page eligible for annotation and JSON-LD export.
type ContentItem struct {
	ID         int64
	URI        string
	Title      string
	Content    string
	Excerpt    string
	Slug       string
	PostType   string
	EntityType string
}

// HasContent reports whether the item carries a non-empty body.
func (c ContentItem) HasContent() bool {
	return c.Content != ""
}

// ImageDescriptor is the full-size rendition of an image attachment as stored.
// Width and Height are zero when the source does not know them.
type ImageDescriptor struct {
	URL    string
	Width  int
	Height int
}

// RenderedItem is the output of a full render pass for one content item.
type RenderedItem struct {
	ID       int64      `json:"id"`
	HTML     string     `json:"html"`
	Entities []string   `json:"entities"`
	JSONLD   []Document `json:"jsonld"`
}

// URISet collects entity URIs keeping the order of first insertion.
type URISet struct {
	order []string
	seen  map[string]struct{}
}

// NewURISet builds an empty set.
func NewURISet() *URISet {
	return &URISet{seen: map[string]struct{}{}}
}

// Add appends uris that are not yet present. Empty strings are ignored.
func (s *URISet) Add(uris ...string) {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		if _, ok := s.seen[uri]; ok {
			continue
		}
		s.seen[uri] = struct{}{}
		s.order = append(s.order, uri)
	}
}

// Contains reports whether uri was added.
func (s *URISet) Contains(uri string) bool {
	_, ok := s.seen[uri]
	return ok
}

// Len returns the number of distinct URIs.
func (s *URISet) Len() int {
	return len(s.order)
}

// Values returns a copy of the URIs in insertion order.
func (s *URISet) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
