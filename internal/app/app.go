package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"ContentEnricher/internal/annotation"
	"ContentEnricher/internal/config"
	"ContentEnricher/internal/entitytype"
	"ContentEnricher/internal/infrastructure/cache"
	"ContentEnricher/internal/infrastructure/parser"
	"ContentEnricher/internal/infrastructure/storage"
	"ContentEnricher/internal/jsonld"
	"ContentEnricher/internal/logging"
	"ContentEnricher/internal/ports"
	"ContentEnricher/internal/usecase"
)

const redisOpenTimeout = 5 * time.Second

// Application wires configs to use cases and owns the process-wide resources.
type Application struct {
	cfg         config.Config
	pool        *pgxpool.Pool
	repository  *storage.PostgresRepository
	renderer    *usecase.Renderer
	invalidator *usecase.Invalidator

	mu    sync.Mutex
	redis *redis.Client
}

// New builds the application graph. Connections are established lazily.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	a := &Application{cfg: cfg, pool: pool}

	a.repository = storage.NewPostgresRepository(pool, storage.Options{
		TablePrefix:   cfg.Database.TablePrefix,
		SiteURL:       cfg.Site.BaseURL,
		DatasetURI:    cfg.Site.DatasetURI,
		LinkByDefault: cfg.Site.LinksByDefault(),
	})

	images := parser.NewImageSource(a.repository, baseLogger.With("component", "images"))
	imageCache := jsonld.NewImageCache(a.openCache, cfg.Cache.ImageTTL, baseLogger.With("component", "image_cache"))

	engine := annotation.NewEngine(annotation.EngineDeps{
		Resolver:   a.repository,
		Permalinks: a.repository,
		Settings:   a.repository,
		Logger:     baseLogger.With("component", "annotation"),
	})

	converter := jsonld.NewConverter(jsonld.ConverterDeps{
		Items:         a.repository,
		Resolver:      a.repository,
		Permalinks:    a.repository,
		Images:        images,
		Cache:         imageCache,
		Types:         entitytype.FromConfig(cfg.EntityTypes),
		Excerpts:      jsonld.NewExcerpter(cfg.Site.ExcerptWords),
		SchemaContext: cfg.Site.SchemaContext,
		Logger:        baseLogger.With("component", "jsonld"),
	})

	a.renderer = usecase.NewRenderer(usecase.RendererDeps{
		Items:     a.repository,
		Resolver:  a.repository,
		Engine:    engine,
		Converter: converter,
		Logger:    baseLogger.With("component", "renderer"),
	})
	a.invalidator = usecase.NewInvalidator(imageCache, baseLogger.With("component", "invalidator"))

	return a, nil
}

// Renderer exposes the render use case.
func (a *Application) Renderer() *usecase.Renderer {
	return a.renderer
}

// Invalidator exposes the cache lifecycle hooks.
func (a *Application) Invalidator() *usecase.Invalidator {
	return a.invalidator
}

// Repository exposes the content store for site option updates.
func (a *Application) Repository() *storage.PostgresRepository {
	return a.repository
}

// Close releases the database pool and the Redis client if one was opened.
func (a *Application) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.redis != nil {
		err = a.redis.Close()
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

func (a *Application) openCache() (ports.Cache, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), redisOpenTimeout)
		defer cancel()

		client, err := cache.NewRedisClient(ctx, a.cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.redis = client
		a.mu.Unlock()
		return cache.NewRedis(client, a.cfg.Cache.Namespace), nil
	case config.CacheBackendMemory, "":
		return cache.NewMemoryStore().Open(a.cfg.Cache.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}
}
