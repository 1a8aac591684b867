package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/buildinfo"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Main.DataDir = t.TempDir()
	settings.Graph.Backend = conf.BackendSQLite
	settings.Embedding.Provider = conf.ProviderHashing
	settings.Embedding.Dimensions = 16
	settings.Artists = map[string]conf.ArtistConfig{"arijit": {Name: "Arijit"}}
	return settings
}

func TestNewWithoutLLM(t *testing.T) {
	settings := testSettings(t)
	c := NewContext(settings, buildinfo.NewContext("v1.2.3", ""))
	assert.Equal(t, "v1.2.3", settings.Version)

	a, err := New(t.Context(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NotNil(t, a.Service)
	require.NotNil(t, a.Metrics)
	assert.Equal(t, 16, a.Embedder.Dimensions())

	exists, err := a.Registry.GraphExists(t.Context(), "arijit")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = a.Service.Generate(t.Context(), "arijit", "raat")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	rec := httptest.NewRecorder()
	a.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Contains(t, rec.Body.String(),
		`lyricgraph_errors_total{category="configuration",component="generation"} 1`)
}

func TestNewRejectsBadLexicon(t *testing.T) {
	settings := testSettings(t)
	settings.Analysis.LexiconPath = settings.Main.DataDir + "/missing.yaml"

	_, err := New(t.Context(), NewContext(settings, nil))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestPrintJSON(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	require.NoError(t, PrintJSON(&b, map[string]string{"title": "Tum <3"}))
	assert.Equal(t, "{\n  \"title\": \"Tum <3\"\n}\n", b.String())
}

func TestContextRun(t *testing.T) {
	settings := testSettings(t)
	c := NewContext(settings, nil)

	called := false
	err := c.Run(t.Context(), func(_ context.Context, a *App) error {
		called = true
		assert.NotNil(t, a.Service)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
