package datastore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/conf"
)

func newTestRegistry(t *testing.T, maxOpen int) (*Registry, *conf.Settings) {
	t.Helper()
	settings := &conf.Settings{}
	settings.Graph.Backend = conf.BackendSQLite
	settings.Graph.SQLite.Dir = t.TempDir()
	settings.Graph.MaxOpenStores = maxOpen

	r, err := NewRegistry(settings, WithLimits(testLimits))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, settings
}

func TestRegistryGraphExists(t *testing.T) {
	t.Parallel()
	r, settings := newTestRegistry(t, 2)
	ctx := t.Context()

	ok, err := r.GraphExists(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(SQLitePath(settings.GraphDir(), "unknown"))
	assert.True(t, os.IsNotExist(err), "lookup must not create a database file")

	store, err := r.Get(ctx, testArtist)
	require.NoError(t, err)
	ok, err = r.GraphExists(ctx, testArtist)
	require.NoError(t, err)
	assert.False(t, ok, "empty schema has no artist")

	_, err = store.IngestGraph(ctx, testGraph(), conf.ArtistConfig{})
	require.NoError(t, err)
	ok, err = r.GraphExists(ctx, testArtist)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := r.Get(ctx, testArtist)
	require.NoError(t, err)
	assert.Same(t, store, again)
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t, 1)
	ctx := t.Context()

	first, err := r.Get(ctx, "first")
	require.NoError(t, err)
	_, err = r.Get(ctx, "second")
	require.NoError(t, err)

	sqliteStore, ok := first.(*SQLiteStore)
	require.True(t, ok)
	assert.Nil(t, sqliteStore.DB, "evicted store is closed")
}

func TestRegistryReset(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t, 2)
	ctx := t.Context()

	store, err := r.Get(ctx, testArtist)
	require.NoError(t, err)
	_, err = store.IngestGraph(ctx, testGraph(), conf.ArtistConfig{})
	require.NoError(t, err)

	store, err = r.Reset(ctx, testArtist)
	require.NoError(t, err)
	n, err := store.SongCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()
	settings := &conf.Settings{}
	settings.Main.DataDir = "/data"

	store := New(settings, "artist")
	sqliteStore, ok := store.(*SQLiteStore)
	require.True(t, ok)
	assert.Equal(t, "/data/graphstore/artist.db", sqliteStore.Path)
	assert.Equal(t, "artist", store.Artist())

	settings.Graph.Backend = conf.BackendMySQL
	settings.Graph.MySQL.Database = "lyricgraph"
	_, ok = New(settings, "my-artist").(*MySQLStore)
	assert.True(t, ok)
	assert.Equal(t, "lyricgraph_my_artist", MySQLDatabase("lyricgraph", "my-artist"))
}
