package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentEnricher/internal/domain"
)

func newMockRepository(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewPostgresRepository(mock, Options{
		TablePrefix:   "wp_",
		SiteURL:       "http://site/",
		DatasetURI:    "http://data.site/dataset/",
		LinkByDefault: true,
	})
	return repo, mock
}

func expectItem(mock pgxmock.PgxPoolIface, id int64, entityType string) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "wp_posts" p LEFT JOIN "wp_postmeta" m ON m.post_id = p.id AND m.meta_key = $1 WHERE p.id = $2 AND p.post_status <> $3`)).
		WithArgs("entity_url", id, "trash").
		WillReturnRows(pgxmock.NewRows([]string{"id", "post_title", "post_content", "post_excerpt", "post_name", "post_type", "uri"}).
			AddRow(id, "Rome", "<p>Rome</p>", "", "rome", "entity", "http://data.site/dataset/entity/rome"))

	rows := pgxmock.NewRows([]string{"slug"})
	if entityType != "" {
		rows.AddRow(entityType)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT t.slug FROM "wp_term_relationships" tr JOIN "wp_term_taxonomy" tt`)).
		WithArgs(id, "wl_entity_type").
		WillReturnRows(rows)
}

func TestItemByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	expectItem(mock, 7, "place")

	item, err := repo.ItemByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, int64(7), item.ID)
	assert.Equal(t, "Rome", item.Title)
	assert.Equal(t, "rome", item.Slug)
	assert.Equal(t, "http://data.site/dataset/entity/rome", item.URI)
	assert.Equal(t, "place", item.EntityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM "wp_posts" p`).
		WithArgs("entity_url", int64(9), "trash").
		WillReturnError(pgx.ErrNoRows)

	item, err := repo.ItemByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemByIDQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM "wp_posts" p`).
		WithArgs("entity_url", int64(9), "trash").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ItemByID(context.Background(), 9)
	assert.Error(t, err)
}

func TestResolveByURI(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT post_id FROM "wp_postmeta" WHERE meta_key IN ($1,$2) AND meta_value = $3`)).
		WithArgs("entity_url", "entity_same_as", "http://x/rome").
		WillReturnRows(pgxmock.NewRows([]string{"post_id"}).AddRow(int64(7)))
	expectItem(mock, 7, "")

	item, err := repo.ResolveByURI(context.Background(), "http://x/rome")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(7), item.ID)
	assert.Empty(t, item.EntityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveByURIUnknown(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT post_id FROM "wp_postmeta"`).
		WithArgs("entity_url", "entity_same_as", "http://x/none").
		WillReturnRows(pgxmock.NewRows([]string{"post_id"}))

	item, err := repo.ResolveByURI(context.Background(), "http://x/none")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestAlternativeLabelsAndRelatedEntities(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT meta_value FROM "wp_postmeta" WHERE meta_key = $1 AND post_id = $2 ORDER BY meta_id`)).
		WithArgs("entity_alternative_label", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"meta_value"}).AddRow("Roma").AddRow("Eternal City"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT m.meta_value FROM "wp_wl_relation_instances" ri JOIN "wp_postmeta" m`)).
		WithArgs("entity_url", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"meta_value"}).AddRow("http://x/italy"))

	ctx := context.Background()
	labels, err := repo.AlternativeLabels(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"Roma", "Eternal City"}, labels)

	related, err := repo.RelatedEntities(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://x/italy"}, related)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermalinkAndCanonicalURI(t *testing.T) {
	repo, mock := newMockRepository(t)
	slugQuery := regexp.QuoteMeta(`SELECT post_name, post_type FROM "wp_posts" WHERE id = $1`)
	mock.ExpectQuery(slugQuery).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"post_name", "post_type"}).AddRow("hello", "post"))
	mock.ExpectQuery(slugQuery).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"post_name", "post_type"}).AddRow("rome", "entity"))
	mock.ExpectQuery(slugQuery).WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows([]string{"post_name", "post_type"}).AddRow("", "post"))
	mock.ExpectQuery(slugQuery).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"post_name", "post_type"}).AddRow("rome", "entity"))
	mock.ExpectQuery(slugQuery).WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	ctx := context.Background()

	link, err := repo.Permalink(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "http://site/hello/", link)

	link, err = repo.Permalink(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "http://site/entity/rome/", link)

	link, err = repo.Permalink(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "http://site/?p=8", link)

	uri, err := repo.CanonicalURI(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "http://data.site/dataset/entity/rome", uri)

	_, err = repo.Permalink(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkByDefault(t *testing.T) {
	cases := []struct {
		name  string
		rows  []string
		want  bool
		isErr bool
	}{
		{name: "missing option uses configured default", want: true},
		{name: "yes", rows: []string{"yes"}, want: true},
		{name: "no", rows: []string{"no"}, want: false},
		{name: "bool", rows: []string{"false"}, want: false},
		{name: "garbage", rows: []string{"maybe"}, want: true, isErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			rows := pgxmock.NewRows([]string{"option_value"})
			for _, v := range tc.rows {
				rows.AddRow(v)
			}
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT option_value FROM "wp_options" WHERE option_name = $1`)).
				WithArgs("wl_link_by_default").
				WillReturnRows(rows)

			got, err := repo.LinkByDefault(context.Background())
			if tc.isErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSetOption(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "wp_options" (option_name,option_value) VALUES ($1,$2) ON CONFLICT (option_name)`)).
		WithArgs("wl_link_by_default", "no").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SetOption(context.Background(), "wl_link_by_default", "no"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeaturedImageAndAttachment(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT meta_value FROM "wp_postmeta" WHERE meta_key = $1 AND post_id = $2`)).
		WithArgs("_thumbnail_id", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"meta_value"}).AddRow(" 10 "))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.guid, COALESCE(m.meta_value, '') FROM "wp_posts" p LEFT JOIN "wp_postmeta" m`)).
		WithArgs("_wp_attachment_metadata", int64(10), "attachment").
		WillReturnRows(pgxmock.NewRows([]string{"guid", "meta"}).
			AddRow("http://site/rome.jpg", `{"width":1200,"height":"800","file":"rome.jpg"}`))
	mock.ExpectQuery(`SELECT p.guid`).
		WithArgs("_wp_attachment_metadata", int64(11), "attachment").
		WillReturnRows(pgxmock.NewRows([]string{"guid", "meta"}))

	ctx := context.Background()
	featured, err := repo.FeaturedImageID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(10), featured)

	desc, ok, err := repo.Attachment(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ImageDescriptor{URL: "http://site/rome.jpg", Width: 1200, Height: 800}, desc)

	_, ok, err = repo.Attachment(ctx, 11)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseDimensions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		meta          string
		width, height int
	}{
		{`{"width":640,"height":480}`, 640, 480},
		{`{"width":"640","height":"480px"}`, 640, 0},
		{`{"width":0,"height":-3}`, 0, 0},
		{`{"width":12.5}`, 0, 0},
		{`{}`, 0, 0},
		{`not json`, 0, 0},
		{``, 0, 0},
	}

	for _, tc := range cases {
		w, h := parseDimensions(tc.meta)
		assert.Equal(t, tc.width, w, tc.meta)
		assert.Equal(t, tc.height, h, tc.meta)
	}
}
