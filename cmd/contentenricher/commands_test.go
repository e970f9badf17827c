package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentEnricher/internal/app"
	"ContentEnricher/internal/config"
)

const memoryConfig = "logging:\n  level: error\ncache:\n  backend: memory\n  namespace: test_images\n"

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	t.Setenv("REDIS_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, build builder, args ...string) (string, error) {
	t.Helper()
	return executeWithConfig(t, memoryConfig, build, args...)
}

func executeWithConfig(t *testing.T, body string, build builder, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd(build)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", writeConfig(t, body)}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func countingBuilder(calls *int) builder {
	return func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.Application, error) {
		*calls++
		return app.New(ctx, cfg, logger)
	}
}

func TestInvalidIDIsRejectedBeforeWiring(t *testing.T) {
	for _, cmd := range []string{"render", "jsonld", "entities", "invalidate"} {
		calls := 0
		_, err := execute(t, countingBuilder(&calls), cmd, "abc")
		assert.Error(t, err, cmd)
		assert.Zero(t, calls, cmd)

		_, err = execute(t, countingBuilder(&calls), cmd, "0")
		assert.Error(t, err, cmd)
		assert.Zero(t, calls, cmd)
	}
}

func TestInvalidationRequiresSharedCache(t *testing.T) {
	for _, args := range [][]string{
		{"flush-images"},
		{"invalidate", "42"},
		{"invalidate", "42", "--meta-key", "_thumbnail_id"},
	} {
		calls := 0
		_, err := execute(t, countingBuilder(&calls), args...)
		assert.ErrorIs(t, err, errProcessLocalCache, args)
		assert.Zero(t, calls, args)
	}
}

func TestInvalidationWithRedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	body := "logging:\n  level: error\ncache:\n  backend: redis\n  redisUrl: redis://" + srv.Addr() +
		"\n  namespace: test_images\n"
	for _, key := range []string{"test_images:7", "test_images:8", "test_images:9", "other:7"} {
		require.NoError(t, srv.Set(key, `{"state":"none"}`))
	}

	calls := 0
	_, err := executeWithConfig(t, body, countingBuilder(&calls), "invalidate", "8", "--meta-key", "_edit_lock")
	require.NoError(t, err)
	assert.True(t, srv.Exists("test_images:8"))

	_, err = executeWithConfig(t, body, countingBuilder(&calls), "invalidate", "8", "--meta-key", "_thumbnail_id")
	require.NoError(t, err)
	assert.False(t, srv.Exists("test_images:8"))

	_, err = executeWithConfig(t, body, countingBuilder(&calls), "invalidate", "9")
	require.NoError(t, err)
	assert.False(t, srv.Exists("test_images:9"))

	_, err = executeWithConfig(t, body, countingBuilder(&calls), "flush-images")
	require.NoError(t, err)
	assert.False(t, srv.Exists("test_images:7"))
	assert.True(t, srv.Exists("other:7"))
	assert.Equal(t, 4, calls)
}

func TestLinkByDefaultRejectsNonBool(t *testing.T) {
	calls := 0
	_, err := execute(t, countingBuilder(&calls), "settings", "link-by-default", "sometimes")
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestBuildFailureIsReported(t *testing.T) {
	failing := func(context.Context, config.Config, *slog.Logger) (*app.Application, error) {
		return nil, errors.New("no database")
	}
	_, err := execute(t, failing, "render", "1")
	assert.EqualError(t, err, "no database")
}

func TestWriteJSONKeepsMarkup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]string{"html": "<a href='x'>A</a>"}))
	assert.Equal(t, "{\n  \"html\": \"<a href='x'>A</a>\"\n}\n", buf.String())
}
