package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "fs_lastrun")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "fs_lastrun", `{"g1":"abc"}`))
	v, ok, err := c.Get(ctx, "fs_lastrun")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"g1":"abc"}`, v)

	require.NoError(t, c.Set(ctx, "fs_lastrun", ""))
	v, ok, err = c.Get(ctx, "fs_lastrun")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		c, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		defer c.Close()
		exercise(t, c)
	})

	t.Run("persists across opens", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.db")
		ctx := context.Background()
		c, err := OpenSQLite(ctx, path)
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, "k", "v"))
		require.NoError(t, c.Close())

		c, err = OpenSQLite(ctx, path)
		require.NoError(t, err)
		defer c.Close()
		v, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})
}

func TestNATS(t *testing.T) {
	url := os.Getenv("SERIESGEN_TEST_NATS_URL")
	if url == "" {
		t.Skip("SERIESGEN_TEST_NATS_URL not set")
	}
	c, err := OpenNATS(context.Background(), url, "seriesgen_test")
	require.NoError(t, err)
	defer c.Close()
	exercise(t, c)
}

func TestNATSKey(t *testing.T) {
	assert.Equal(t, "a_b_c_", natsKey("a b*c>"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, Options{Type: TypeNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Open(ctx, Options{Type: TypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = Open(ctx, Options{Type: "redis"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = Open(ctx, Options{Type: TypeSQLite})
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
