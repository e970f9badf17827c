package entitytype

import (
	"fmt"
	"strings"

	"ContentEnricher/internal/config"
)

// DefaultTypeURI is used for items without a known entity type term.
const DefaultTypeURI = "http://schema.org/Thing"

// Registry keeps a mapping from entity type term slugs to schema.org type URIs.
type Registry struct {
	types    map[string]string
	fallback string
}

// NewRegistry builds an empty registry falling back to DefaultTypeURI.
func NewRegistry() *Registry {
	return &Registry{types: map[string]string{}, fallback: DefaultTypeURI}
}

// FromConfig registers every configured term.
func FromConfig(cfg []config.EntityTypeConfig) *Registry {
	reg := NewRegistry()
	for _, t := range cfg {
		reg.Register(t.Slug, t.URI)
	}
	return reg
}

// Register adds or replaces a slug mapping. Empty slugs or URIs are ignored.
func (r *Registry) Register(slug, uri string) {
	slug = normalize(slug)
	if slug == "" || uri == "" {
		return
	}
	if r.types == nil {
		r.types = map[string]string{}
	}
	r.types[slug] = uri
}

// Resolve returns the type URI for a slug or an error if it is absent.
func (r *Registry) Resolve(slug string) (string, error) {
	if uri, ok := r.types[normalize(slug)]; ok {
		return uri, nil
	}
	return "", fmt.Errorf("entity type %s is not registered", slug)
}

// TypeOf is Resolve with the fallback type for unknown or empty slugs.
func (r *Registry) TypeOf(slug string) string {
	if uri, err := r.Resolve(slug); err == nil {
		return uri
	}
	return r.fallback
}

func normalize(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Relativize strips the schema context and its separator from a type URI,
// leaving URIs outside the context untouched.
func Relativize(typeURI, context string) string {
	if context == "" {
		return typeURI
	}
	prefix := strings.TrimRight(context, "/") + "/"
	if strings.HasPrefix(typeURI, prefix) && len(typeURI) > len(prefix) {
		return typeURI[len(prefix):]
	}
	return typeURI
}
