package jsonld

import (
	"context"
	"fmt"
	"log/slog"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/entitytype"
	"ContentEnricher/internal/ports"
)

// DefaultContext is the JSON-LD context emitted when none is configured.
const DefaultContext = "http://schema.org"

// ConverterDeps wires all driven adapters into the converter.
type ConverterDeps struct {
	Items         ports.ContentRepository
	Resolver      ports.EntityResolver
	Permalinks    ports.PermalinkProvider
	Images        ports.ImageSource
	Cache         *ImageCache
	Types         *entitytype.Registry
	Excerpts      *Excerpter
	SchemaContext string
	Logger        *slog.Logger
}

// Converter builds JSON-LD documents for content items.
type Converter struct {
	items         ports.ContentRepository
	resolver      ports.EntityResolver
	permalinks    ports.PermalinkProvider
	images        ports.ImageSource
	cache         *ImageCache
	types         *entitytype.Registry
	excerpts      *Excerpter
	schemaContext string
	logger        *slog.Logger
}

// NewConverter constructs the converter. The image cache is shared, not owned.
func NewConverter(deps ConverterDeps) *Converter {
	c := &Converter{
		items:         deps.Items,
		resolver:      deps.Resolver,
		permalinks:    deps.Permalinks,
		images:        deps.Images,
		cache:         deps.Cache,
		types:         deps.Types,
		excerpts:      deps.Excerpts,
		schemaContext: deps.SchemaContext,
		logger:        deps.Logger,
	}
	if c.types == nil {
		c.types = entitytype.NewRegistry()
	}
	if c.excerpts == nil {
		c.excerpts = NewExcerpter(DefaultExcerptWords)
	}
	if c.schemaContext == "" {
		c.schemaContext = DefaultContext
	}
	return c
}

// Convert returns the JSON-LD document of a content item and adds the URIs of its
// related entities to refs. A missing item yields (nil, nil); only a failing item
// lookup is reported as an error, other failures leave their part out.
func (c *Converter) Convert(ctx context.Context, id int64, refs *domain.URISet) (*domain.Document, error) {
	if c.items == nil {
		return nil, fmt.Errorf("content repository is not configured")
	}

	item, err := c.items.ItemByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil {
		c.debug("content item not found", "id", id)
		return nil, nil
	}

	doc := &domain.Document{
		Context:     c.schemaContext,
		ID:          c.itemURI(ctx, item),
		Type:        entitytype.Relativize(c.types.TypeOf(item.EntityType), c.schemaContext),
		Description: c.excerpts.Excerpt(item.Excerpt, item.Content),
	}

	if item.HasContent() && c.permalinks != nil {
		permalink, err := c.permalinks.Permalink(ctx, item.ID)
		if err != nil {
			c.warn("permalink unavailable", "id", item.ID, "error", err)
		} else {
			doc.MainEntityOfPage = permalink
		}
	}

	if images := c.resolveImages(ctx, item); len(images) > 0 {
		doc.Image = images
	}

	if refs != nil && c.resolver != nil {
		related, err := c.resolver.RelatedEntities(ctx, item.ID)
		if err != nil {
			c.warn("load related entities", "id", item.ID, "error", err)
		}
		refs.Add(related...)
	}

	return doc, nil
}

func (c *Converter) itemURI(ctx context.Context, item *domain.ContentItem) string {
	if item.URI != "" || c.resolver == nil {
		return item.URI
	}
	uri, err := c.resolver.CanonicalURI(ctx, item.ID)
	if err != nil {
		c.warn("canonical uri unavailable", "id", item.ID, "error", err)
		return ""
	}
	return uri
}

// resolveImages returns the cached image list or computes and caches it.
func (c *Converter) resolveImages(ctx context.Context, item *domain.ContentItem) []domain.ImageObject {
	if c.cache != nil {
		cached, err := c.cache.Lookup(ctx, item.ID)
		if err != nil {
			c.warn("image cache lookup", "id", item.ID, "error", err)
		}
		switch cached.State {
		case CacheImages:
			return cached.Images
		case CacheNoImages:
			return nil
		}
	}

	if c.images == nil {
		return nil
	}

	ids, complete := c.imageIDs(ctx, item)
	images := make([]domain.ImageObject, 0, len(ids))
	for _, imageID := range ids {
		desc, ok, err := c.images.ImageDescriptor(ctx, imageID)
		if err != nil {
			c.warn("load image", "id", item.ID, "image", imageID, "error", err)
			complete = false
			continue
		}
		if !ok || desc.URL == "" {
			continue
		}
		images = append(images, domain.NewImageObject(desc))
	}

	if c.cache != nil && complete {
		if err := c.cache.Store(ctx, item.ID, images); err != nil {
			c.warn("image cache store", "id", item.ID, "error", err)
		}
	}

	return images
}

// imageIDs lists the featured image, then embedded images, then gallery images,
// each stage skipping ids already collected. complete is false when a stage failed.
func (c *Converter) imageIDs(ctx context.Context, item *domain.ContentItem) ([]int64, bool) {
	var (
		ids      []int64
		seen     = map[int64]struct{}{}
		complete = true
	)
	add := func(candidates ...int64) {
		for _, id := range candidates {
			if id <= 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	featured, err := c.images.FeaturedImageID(ctx, item.ID)
	if err != nil {
		c.warn("load featured image", "id", item.ID, "error", err)
		complete = false
	}
	add(featured)

	add(c.images.EmbeddedImageIDs(item.Content)...)

	gallery, err := c.images.GalleryImageIDs(ctx, item.ID)
	if err != nil {
		c.warn("load gallery images", "id", item.ID, "error", err)
		complete = false
	}
	add(gallery...)

	return ids, complete
}

func (c *Converter) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Converter) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
