package jsonld

import (
	"context"
	"errors"
	"time"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

type fakeStore struct {
	items   map[int64]*domain.ContentItem
	related map[int64][]string
	links   map[int64]string
	err     error
}

func (f *fakeStore) ItemByID(_ context.Context, id int64) (*domain.ContentItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[id], nil
}

func (f *fakeStore) ResolveByURI(context.Context, string) (*domain.ContentItem, error) {
	return nil, nil
}

func (f *fakeStore) AlternativeLabels(context.Context, int64) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) RelatedEntities(_ context.Context, id int64) ([]string, error) {
	return f.related[id], nil
}

func (f *fakeStore) CanonicalURI(_ context.Context, id int64) (string, error) {
	return "http://data.example.org/post/" + key(id), nil
}

func (f *fakeStore) Permalink(_ context.Context, id int64) (string, error) {
	link, ok := f.links[id]
	if !ok {
		return "", errors.New("no permalink")
	}
	return link, nil
}

func (f *fakeStore) Title(context.Context, int64) (string, error) {
	return "", nil
}

type fakeImages struct {
	featured map[int64]int64
	embedded []int64
	gallery  map[int64][]int64
	images   map[int64]domain.ImageDescriptor
	calls    int
}

func (f *fakeImages) FeaturedImageID(_ context.Context, id int64) (int64, error) {
	f.calls++
	return f.featured[id], nil
}

func (f *fakeImages) EmbeddedImageIDs(content string) []int64 {
	f.calls++
	if content == "" {
		return nil
	}
	return f.embedded
}

func (f *fakeImages) GalleryImageIDs(_ context.Context, id int64) ([]int64, error) {
	f.calls++
	return f.gallery[id], nil
}

func (f *fakeImages) ImageDescriptor(_ context.Context, id int64) (domain.ImageDescriptor, bool, error) {
	f.calls++
	desc, ok := f.images[id]
	return desc, ok, nil
}

type fakeCache struct {
	data    map[string][]byte
	ttl     time.Duration
	gets    int
	flushes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, k string) ([]byte, bool, error) {
	f.gets++
	v, ok := f.data[k]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, k string, v []byte, ttl time.Duration) error {
	f.data[k] = v
	f.ttl = ttl
	return nil
}

func (f *fakeCache) Delete(_ context.Context, k string) error {
	delete(f.data, k)
	return nil
}

func (f *fakeCache) Flush(context.Context) error {
	f.flushes++
	f.data = map[string][]byte{}
	return nil
}

func openerFor(cache ports.Cache) Opener {
	return func() (ports.Cache, error) { return cache, nil }
}
