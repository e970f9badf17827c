package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const (
	metaEntityURL        = "entity_url"
	metaSameAs           = "entity_same_as"
	metaAlternativeLabel = "entity_alternative_label"
	metaThumbnailID      = "_thumbnail_id"
	metaAttachment       = "_wp_attachment_metadata"

	entityTypeTaxonomy  = "wl_entity_type"
	optionLinkByDefault = "wl_link_by_default"

	postTypeAttachment = "attachment"
	postStatusTrash    = "trash"
)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Options configures table naming and URL generation.
type Options struct {
	TablePrefix   string
	SiteURL       string
	DatasetURI    string
	LinkByDefault bool
}

// PostgresRepository reads content items, entity metadata and attachments
// from a WordPress-shaped schema stored in Postgres.
type PostgresRepository struct {
	db            DB
	prefix        string
	siteURL       string
	datasetURI    string
	linkByDefault bool
	psql          sq.StatementBuilderType
}

var (
	_ ports.ContentRepository = (*PostgresRepository)(nil)
	_ ports.EntityResolver    = (*PostgresRepository)(nil)
	_ ports.PermalinkProvider = (*PostgresRepository)(nil)
	_ ports.Settings          = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a pgx pool (or any DB implementation).
func NewPostgresRepository(db DB, opts Options) *PostgresRepository {
	return &PostgresRepository{
		db:            db,
		prefix:        opts.TablePrefix,
		siteURL:       strings.TrimRight(opts.SiteURL, "/"),
		datasetURI:    strings.TrimRight(opts.DatasetURI, "/"),
		linkByDefault: opts.LinkByDefault,
		psql:          sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresRepository) table(name string) string {
	return pq.QuoteIdentifier(r.prefix + name)
}

// ItemByID loads a non-trashed post with its entity URI and entity type slug.
func (r *PostgresRepository) ItemByID(ctx context.Context, id int64) (*domain.ContentItem, error) {
	if r.db == nil {
		return nil, errors.New("database connection not available")
	}

	query, args, err := r.psql.
		Select("p.id", "p.post_title", "p.post_content", "p.post_excerpt", "p.post_name", "p.post_type",
			"COALESCE(m.meta_value, '')").
		From(r.table("posts") + " p").
		LeftJoin(r.table("postmeta")+" m ON m.post_id = p.id AND m.meta_key = ?", metaEntityURL).
		Where(sq.Eq{"p.id": id}).
		Where(sq.NotEq{"p.post_status": postStatusTrash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	var item domain.ContentItem
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&item.ID, &item.Title, &item.Content, &item.Excerpt, &item.Slug, &item.PostType, &item.URI)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query item %d: %w", id, err)
	}

	item.EntityType, err = r.entityType(ctx, id)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *PostgresRepository) entityType(ctx context.Context, id int64) (string, error) {
	query, args, err := r.psql.
		Select("t.slug").
		From(r.table("term_relationships") + " tr").
		Join(r.table("term_taxonomy") + " tt ON tt.term_taxonomy_id = tr.term_taxonomy_id").
		Join(r.table("terms") + " t ON t.term_id = tt.term_id").
		Where(sq.Eq{"tr.object_id": id, "tt.taxonomy": entityTypeTaxonomy}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build entity type query: %w", err)
	}

	var slug string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query entity type %d: %w", id, err)
	}
	return slug, nil
}

// ResolveByURI finds the item whose entity URI or sameAs matches uri.
func (r *PostgresRepository) ResolveByURI(ctx context.Context, uri string) (*domain.ContentItem, error) {
	if r.db == nil {
		return nil, errors.New("database connection not available")
	}

	query, args, err := r.psql.
		Select("post_id").
		From(r.table("postmeta")).
		Where(sq.Eq{"meta_key": []string{metaEntityURL, metaSameAs}, "meta_value": uri}).
		OrderBy("CASE WHEN meta_key = '" + metaEntityURL + "' THEN 0 ELSE 1 END", "post_id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build resolve query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve %s: %w", uri, err)
	}

	return r.ItemByID(ctx, id)
}

// AlternativeLabels returns the synonyms stored for an entity in insertion order.
func (r *PostgresRepository) AlternativeLabels(ctx context.Context, id int64) ([]string, error) {
	return r.queryStrings(ctx, r.psql.
		Select("meta_value").
		From(r.table("postmeta")).
		Where(sq.Eq{"post_id": id, "meta_key": metaAlternativeLabel}).
		OrderBy("meta_id"))
}

// RelatedEntities returns the URIs of the entities an item is related to.
func (r *PostgresRepository) RelatedEntities(ctx context.Context, id int64) ([]string, error) {
	return r.queryStrings(ctx, r.psql.
		Select("m.meta_value").
		From(r.table("wl_relation_instances") + " ri").
		Join(r.table("postmeta")+" m ON m.post_id = ri.object_id AND m.meta_key = ?", metaEntityURL).
		Where(sq.Eq{"ri.subject_id": id}).
		OrderBy("ri.id"))
}

// CanonicalURI builds the dataset URI of an item from its type and slug.
func (r *PostgresRepository) CanonicalURI(ctx context.Context, id int64) (string, error) {
	if r.datasetURI == "" {
		return "", errors.New("dataset uri is not configured")
	}
	slug, postType, err := r.slugAndType(ctx, id)
	if err != nil {
		return "", err
	}
	if slug == "" {
		slug = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s/%s/%s", r.datasetURI, postType, slug), nil
}

// Permalink builds the public URL of an item.
func (r *PostgresRepository) Permalink(ctx context.Context, id int64) (string, error) {
	slug, postType, err := r.slugAndType(ctx, id)
	if err != nil {
		return "", err
	}
	switch {
	case slug == "":
		return fmt.Sprintf("%s/?p=%d", r.siteURL, id), nil
	case postType == "post" || postType == "page":
		return fmt.Sprintf("%s/%s/", r.siteURL, slug), nil
	default:
		return fmt.Sprintf("%s/%s/%s/", r.siteURL, postType, slug), nil
	}
}

// Title returns the stored title of an item.
func (r *PostgresRepository) Title(ctx context.Context, id int64) (string, error) {
	query, args, err := r.psql.Select("post_title").From(r.table("posts")).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build title query: %w", err)
	}
	var title string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("query title %d: %w", id, err)
	}
	return title, nil
}

// LinkByDefault reads the site option, falling back to the configured default.
func (r *PostgresRepository) LinkByDefault(ctx context.Context) (bool, error) {
	value, ok, err := r.option(ctx, optionLinkByDefault)
	if err != nil {
		return r.linkByDefault, err
	}
	if !ok {
		return r.linkByDefault, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return r.linkByDefault, fmt.Errorf("option %s: %w", optionLinkByDefault, err)
	}
	return parsed, nil
}

// FeaturedImageID returns the attachment id of the featured image, 0 when unset.
func (r *PostgresRepository) FeaturedImageID(ctx context.Context, id int64) (int64, error) {
	values, err := r.queryStrings(ctx, r.psql.
		Select("meta_value").
		From(r.table("postmeta")).
		Where(sq.Eq{"post_id": id, "meta_key": metaThumbnailID}).
		OrderBy("meta_id").
		Limit(1))
	if err != nil || len(values) == 0 {
		return 0, err
	}
	thumb, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
	if err != nil || thumb < 0 {
		return 0, nil
	}
	return thumb, nil
}

// Attachment returns the full-size descriptor of an image attachment.
func (r *PostgresRepository) Attachment(ctx context.Context, id int64) (domain.ImageDescriptor, bool, error) {
	query, args, err := r.psql.
		Select("p.guid", "COALESCE(m.meta_value, '')").
		From(r.table("posts") + " p").
		LeftJoin(r.table("postmeta")+" m ON m.post_id = p.id AND m.meta_key = ?", metaAttachment).
		Where(sq.Eq{"p.id": id, "p.post_type": postTypeAttachment}).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.ImageDescriptor{}, false, fmt.Errorf("build attachment query: %w", err)
	}

	var url, meta string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&url, &meta); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ImageDescriptor{}, false, nil
		}
		return domain.ImageDescriptor{}, false, fmt.Errorf("query attachment %d: %w", id, err)
	}

	desc := domain.ImageDescriptor{URL: url}
	desc.Width, desc.Height = parseDimensions(meta)
	return desc, true, nil
}

// SetOption upserts a site option.
func (r *PostgresRepository) SetOption(ctx context.Context, name, value string) error {
	query, args, err := r.psql.
		Insert(r.table("options")).
		Columns("option_name", "option_value").
		Values(name, value).
		Suffix("ON CONFLICT (option_name) DO UPDATE SET option_value = EXCLUDED.option_value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build option upsert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert option %s: %w", name, err)
	}
	return nil
}

func (r *PostgresRepository) option(ctx context.Context, name string) (string, bool, error) {
	values, err := r.queryStrings(ctx, r.psql.
		Select("option_value").
		From(r.table("options")).
		Where(sq.Eq{"option_name": name}).
		Limit(1))
	if err != nil {
		return "", false, err
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

func (r *PostgresRepository) slugAndType(ctx context.Context, id int64) (string, string, error) {
	query, args, err := r.psql.
		Select("post_name", "post_type").
		From(r.table("posts")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", "", fmt.Errorf("build slug query: %w", err)
	}

	var slug, postType string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&slug, &postType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", domain.ErrNotFound
		}
		return "", "", fmt.Errorf("query slug %d: %w", id, err)
	}
	return slug, postType, nil
}

func (r *PostgresRepository) queryStrings(ctx context.Context, builder sq.SelectBuilder) ([]string, error) {
	if r.db == nil {
		return nil, errors.New("database connection not available")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		result = append(result, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// parseDimensions reads width and height from attachment metadata JSON. Values that
// are not positive integers are reported as zero.
func parseDimensions(meta string) (int, int) {
	if strings.TrimSpace(meta) == "" {
		return 0, 0
	}
	var raw struct {
		Width  json.RawMessage `json:"width"`
		Height json.RawMessage `json:"height"`
	}
	if err := json.Unmarshal([]byte(meta), &raw); err != nil {
		return 0, 0
	}
	return dimension(raw.Width), dimension(raw.Height)
}

func dimension(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}
	var n int
	switch v := value.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		n = parsed
	}
	if n <= 0 {
		return 0
	}
	return n
}
