package parser

import (
	"context"
	"fmt"
	"log/slog"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// AttachmentStore is the storage side of image resolution.
type AttachmentStore interface {
	ItemByID(ctx context.Context, id int64) (*domain.ContentItem, error)
	FeaturedImageID(ctx context.Context, id int64) (int64, error)
	Attachment(ctx context.Context, id int64) (domain.ImageDescriptor, bool, error)
}

// ImageSource implements ports.ImageSource by combining stored attachments with
// images referenced from post markup.
type ImageSource struct {
	store  AttachmentStore
	logger *slog.Logger
}

var _ ports.ImageSource = (*ImageSource)(nil)

// NewImageSource wires the attachment store.
func NewImageSource(store AttachmentStore, log *slog.Logger) *ImageSource {
	return &ImageSource{store: store, logger: log}
}

// FeaturedImageID returns the featured image of an item, 0 when unset.
func (s *ImageSource) FeaturedImageID(ctx context.Context, id int64) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("attachment store is not configured")
	}
	return s.store.FeaturedImageID(ctx, id)
}

// EmbeddedImageIDs returns the attachments referenced by <img> elements of content.
func (s *ImageSource) EmbeddedImageIDs(content string) []int64 {
	ids, err := embeddedImageIDs(content)
	if err != nil {
		s.debug("parse embedded images", "error", err)
		return nil
	}
	return ids
}

// GalleryImageIDs returns the attachments of the galleries in an item's body.
func (s *ImageSource) GalleryImageIDs(ctx context.Context, id int64) ([]int64, error) {
	if s.store == nil {
		return nil, fmt.Errorf("attachment store is not configured")
	}

	item, err := s.store.ItemByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil {
		return nil, nil
	}

	ids := galleryImageIDs(item.Content)
	s.debug("gallery images", "id", id, "count", len(ids))
	return ids, nil
}

// ImageDescriptor returns the full-size rendition of an attachment.
func (s *ImageSource) ImageDescriptor(ctx context.Context, id int64) (domain.ImageDescriptor, bool, error) {
	if s.store == nil {
		return domain.ImageDescriptor{}, false, fmt.Errorf("attachment store is not configured")
	}
	return s.store.Attachment(ctx, id)
}

func (s *ImageSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
