package usecase

import (
	"context"
	"log/slog"

	"ContentEnricher/internal/jsonld"
)

// FeaturedImageMetaKey is the meta key whose changes affect a cached image list.
const FeaturedImageMetaKey = "_thumbnail_id"

// Invalidator reacts to content lifecycle events by dropping stale image lists.
type Invalidator struct {
	cache  *jsonld.ImageCache
	logger *slog.Logger
}

// NewInvalidator wires the shared image cache.
func NewInvalidator(cache *jsonld.ImageCache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: cache, logger: logger}
}

// ContentSaved drops the image list of a saved content item.
func (i *Invalidator) ContentSaved(ctx context.Context, id int64) error {
	if i.cache == nil {
		return nil
	}
	return i.cache.Invalidate(ctx, id)
}

// MetaChanged drops the image list of id when the featured image association was
// added, updated or deleted. Other meta keys are ignored.
func (i *Invalidator) MetaChanged(ctx context.Context, id int64, metaKey string) error {
	if metaKey != FeaturedImageMetaKey {
		i.debug("meta change ignored", "id", id, "key", metaKey)
		return nil
	}
	return i.ContentSaved(ctx, id)
}

// FlushImages drops every cached image list.
func (i *Invalidator) FlushImages(ctx context.Context) error {
	if i.cache == nil {
		return nil
	}
	return i.cache.Flush(ctx)
}

func (i *Invalidator) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}
