package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ContentEnricher/internal/annotation"
	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/jsonld"
	"ContentEnricher/internal/ports"
)

// RendererDeps wires the driven adapters and engines into the render use case.
type RendererDeps struct {
	Items     ports.ContentRepository
	Resolver  ports.EntityResolver
	Engine    *annotation.Engine
	Converter *jsonld.Converter
	Logger    *slog.Logger
}

// Renderer produces the annotated body and the structured data of a content item.
type Renderer struct {
	items     ports.ContentRepository
	resolver  ports.EntityResolver
	engine    *annotation.Engine
	converter *jsonld.Converter
	logger    *slog.Logger
}

// NewRenderer constructs the render use case.
func NewRenderer(deps RendererDeps) *Renderer {
	return &Renderer{
		items:     deps.Items,
		resolver:  deps.Resolver,
		engine:    deps.Engine,
		converter: deps.Converter,
		logger:    deps.Logger,
	}
}

// Render annotates the body of item id and builds its JSON-LD, followed by the
// JSON-LD of every local entity the item references.
func (r *Renderer) Render(ctx context.Context, id int64) (domain.RenderedItem, error) {
	item, err := r.item(ctx, id)
	if err != nil {
		return domain.RenderedItem{}, err
	}

	rendered := domain.RenderedItem{
		ID:       item.ID,
		HTML:     item.Content,
		Entities: []string{},
	}
	if r.engine != nil {
		rendered.HTML = r.engine.Annotate(ctx, item.Content)
		rendered.Entities = r.engine.ExtractEntityURIs(item.Content)
	}

	docs, err := r.documents(ctx, item, rendered.Entities)
	if err != nil {
		return domain.RenderedItem{}, err
	}
	rendered.JSONLD = docs

	r.debug("rendered item", "id", id, "entities", len(rendered.Entities), "documents", len(docs))
	return rendered, nil
}

// JSONLD returns the structured data of item id and of the entities it references.
func (r *Renderer) JSONLD(ctx context.Context, id int64) ([]domain.Document, error) {
	item, err := r.item(ctx, id)
	if err != nil {
		return nil, err
	}

	var uris []string
	if r.engine != nil {
		uris = r.engine.ExtractEntityURIs(item.Content)
	}
	return r.documents(ctx, item, uris)
}

func (r *Renderer) item(ctx context.Context, id int64) (*domain.ContentItem, error) {
	if r.items == nil {
		return nil, fmt.Errorf("content repository is not configured")
	}
	item, err := r.items.ItemByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

func (r *Renderer) documents(ctx context.Context, item *domain.ContentItem, contentURIs []string) ([]domain.Document, error) {
	docs := []domain.Document{}
	if r.converter == nil {
		return docs, nil
	}

	refs := domain.NewURISet()
	doc, err := r.converter.Convert(ctx, item.ID, refs)
	if err != nil {
		return nil, fmt.Errorf("convert item %d: %w", item.ID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("item %d: %w", item.ID, domain.ErrNotFound)
	}
	docs = append(docs, *doc)
	refs.Add(contentURIs...)

	visited := map[int64]struct{}{item.ID: {}}
	for _, uri := range refs.Values() {
		refID, ok := r.localID(ctx, uri)
		if !ok {
			continue
		}
		if _, seen := visited[refID]; seen {
			continue
		}
		visited[refID] = struct{}{}

		refDoc, err := r.converter.Convert(ctx, refID, nil)
		if err != nil {
			r.warn("convert referenced entity", "uri", uri, "id", refID, "error", err)
			continue
		}
		if refDoc != nil {
			docs = append(docs, *refDoc)
		}
	}
	return docs, nil
}

func (r *Renderer) localID(ctx context.Context, uri string) (int64, bool) {
	if r.resolver == nil {
		return 0, false
	}
	entity, err := r.resolver.ResolveByURI(ctx, uri)
	if err != nil {
		r.warn("resolve referenced entity", "uri", uri, "error", err)
		return 0, false
	}
	if entity == nil {
		return 0, false
	}
	return entity.ID, true
}

func (r *Renderer) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Renderer) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
