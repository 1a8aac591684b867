package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/errors"
)

func TestExpandString(t *testing.T) {
	t.Setenv("LYRICGRAPH_TEST_TOKEN", "abc123")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"literal", "plain-key", "plain-key", false},
		{"variable", "${LYRICGRAPH_TEST_TOKEN}", "abc123", false},
		{"embedded", "key-${LYRICGRAPH_TEST_TOKEN}-x", "key-abc123-x", false},
		{"fallback unused", "${LYRICGRAPH_TEST_TOKEN:-other}", "abc123", false},
		{"fallback", "${LYRICGRAPH_TEST_UNSET:-other}", "other", false},
		{"empty fallback", "${LYRICGRAPH_TEST_UNSET:-}", "", false},
		{"missing", "${LYRICGRAPH_TEST_UNSET}", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				assert.Contains(t, err.Error(), "LYRICGRAPH_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))

	for _, bad := range []string{"", empty, dir, filepath.Join(dir, "missing")} {
		_, err := ReadFile(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), bad)
	}
}

func TestResolvePrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))
	t.Setenv("LYRICGRAPH_TEST_KEY", "from-env")

	got, err := Resolve(path, "${LYRICGRAPH_TEST_KEY}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "${LYRICGRAPH_TEST_KEY}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
