package ports

import (
	"context"
	"time"

	"ContentEnricher/internal/domain"
)

// ContentRepository loads content items by their numeric id.
// A missing item is reported as (nil, nil).
type ContentRepository interface {
	ItemByID(ctx context.Context, id int64) (*domain.ContentItem, error)
}

// EntityResolver maps entity URIs to locally stored content items.
type EntityResolver interface {
	ResolveByURI(ctx context.Context, uri string) (*domain.ContentItem, error)
	AlternativeLabels(ctx context.Context, id int64) ([]string, error)
	RelatedEntities(ctx context.Context, id int64) ([]string, error)
	CanonicalURI(ctx context.Context, id int64) (string, error)
}

// PermalinkProvider exposes public URLs and titles of content items.
type PermalinkProvider interface {
	Permalink(ctx context.Context, id int64) (string, error)
	Title(ctx context.Context, id int64) (string, error)
}

// ImageSource enumerates the images attached to a content item.
// FeaturedImageID returns 0 when no featured image is set; ImageDescriptor reports
// ok=false for unknown attachments.
type ImageSource interface {
	FeaturedImageID(ctx context.Context, id int64) (int64, error)
	EmbeddedImageIDs(content string) []int64
	GalleryImageIDs(ctx context.Context, id int64) ([]int64, error)
	ImageDescriptor(ctx context.Context, id int64) (domain.ImageDescriptor, bool, error)
}

// Settings carries site-wide rendering options.
type Settings interface {
	LinkByDefault(ctx context.Context) (bool, error)
}

// Cache is a namespaced key/value store with per-entry TTL.
// Get reports ok=false for absent or expired keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}
