package jsonld

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// DefaultImageTTL is how long a resolved image list stays cached.
const DefaultImageTTL = 24 * time.Hour

// CacheState tells apart a missing entry from a cached "no images" result.
type CacheState int

const (
	// CacheAbsent means the image list was never computed or has expired.
	CacheAbsent CacheState = iota
	// CacheNoImages means the list was computed and is empty.
	CacheNoImages
	// CacheImages means a non-empty list is cached.
	CacheImages
)

const (
	entryNone   = "none"
	entryImages = "images"
)

// CachedImages is the result of an image cache lookup.
type CachedImages struct {
	State  CacheState
	Images []domain.ImageObject
}

type imageEntry struct {
	State  string               `json:"state"`
	Images []domain.ImageObject `json:"images,omitempty"`
}

// Opener builds a handle to the image cache namespace.
type Opener func() (ports.Cache, error)

// ImageCache stores resolved image lists per content item. One instance is shared by
// every converter of the process; the underlying handle is opened on first use.
type ImageCache struct {
	mu     sync.Mutex
	cache  ports.Cache
	open   Opener
	ttl    time.Duration
	logger *slog.Logger
}

// NewImageCache wires an opener; a non-positive ttl selects DefaultImageTTL.
func NewImageCache(open Opener, ttl time.Duration, logger *slog.Logger) *ImageCache {
	if ttl <= 0 {
		ttl = DefaultImageTTL
	}
	return &ImageCache{open: open, ttl: ttl, logger: logger}
}

func (c *ImageCache) handle() (ports.Cache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil {
		return c.cache, nil
	}
	if c.open == nil {
		return nil, errors.New("image cache has no opener")
	}
	cache, err := c.open()
	if err != nil {
		return nil, fmt.Errorf("open image cache: %w", err)
	}
	c.cache = cache
	c.debug("image cache opened")
	return cache, nil
}

// Lookup reads the cached image list of a content item.
func (c *ImageCache) Lookup(ctx context.Context, id int64) (CachedImages, error) {
	cache, err := c.handle()
	if err != nil {
		return CachedImages{}, err
	}

	raw, ok, err := cache.Get(ctx, key(id))
	if err != nil {
		return CachedImages{}, fmt.Errorf("get images %d: %w", id, err)
	}
	if !ok {
		return CachedImages{}, nil
	}

	var entry imageEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.warn("discard unreadable image entry", "id", id, "error", err)
		return CachedImages{}, nil
	}

	switch {
	case entry.State == entryImages && len(entry.Images) > 0:
		return CachedImages{State: CacheImages, Images: entry.Images}, nil
	case entry.State == entryNone, entry.State == entryImages:
		return CachedImages{State: CacheNoImages}, nil
	default:
		return CachedImages{}, nil
	}
}

// Store caches images for id; an empty list is stored as "no images".
func (c *ImageCache) Store(ctx context.Context, id int64, images []domain.ImageObject) error {
	cache, err := c.handle()
	if err != nil {
		return err
	}

	entry := imageEntry{State: entryNone}
	if len(images) > 0 {
		entry = imageEntry{State: entryImages, Images: images}
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal images %d: %w", id, err)
	}

	if err := cache.Set(ctx, key(id), raw, c.ttl); err != nil {
		return fmt.Errorf("set images %d: %w", id, err)
	}
	return nil
}

// Invalidate drops the cached image list of a content item.
func (c *ImageCache) Invalidate(ctx context.Context, id int64) error {
	cache, err := c.handle()
	if err != nil {
		return err
	}
	if err := cache.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("delete images %d: %w", id, err)
	}
	c.debug("image cache invalidated", "id", id)
	return nil
}

// Flush drops every cached image list, opening the namespace first if needed.
func (c *ImageCache) Flush(ctx context.Context) error {
	cache, err := c.handle()
	if err != nil {
		return err
	}
	if err := cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush images: %w", err)
	}
	c.debug("image cache flushed")
	return nil
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (c *ImageCache) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *ImageCache) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
