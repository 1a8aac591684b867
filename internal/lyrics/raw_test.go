package lyrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/errors"
)

func TestLoadRawSongs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := `[
	  {"title": "Baarishein", "album": {"name": "Baarishein EP"}, "year": 2019, "lyrics": "[Verse 1]\nline\n\n\n\nnext\n12Embed", "url": "https://example.com/b"},
	  {"title": "Alag Aasmaan", "album": "Alag Aasmaan", "year": null, "lyrics": "hello"},
	  {"title": "Single", "album": null, "lyrics": ""}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anuv_jain.json"), []byte(data), 0o600))

	songs, err := LoadRawSongs(dir, "anuv_jain")
	require.NoError(t, err)
	require.Len(t, songs, 3)

	assert.Equal(t, AlbumName("Baarishein EP"), songs[0].Album)
	require.NotNil(t, songs[0].Year)
	assert.Equal(t, 2019, *songs[0].Year)
	assert.Equal(t, "[Verse 1]\nline\n\nnext", songs[0].Lyrics)

	assert.Equal(t, AlbumName("Alag Aasmaan"), songs[1].Album)
	assert.Nil(t, songs[1].Year)
	assert.Empty(t, songs[2].Album)
}

func TestLoadRawSongsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadRawSongs(t.TempDir(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.IsMissingData(err))
	assert.Equal(t, "run the scraper first", errors.HintOf(err))
	assert.Contains(t, err.Error(), "nobody.json")
}

func TestLoadRawSongsMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte(`{"title":`), 0o600))
	_, err := LoadRawSongs(dir, "x")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestCleanScraped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"embed suffix", "la la\n34Embed", "la la"},
		{"contributors header", "3 Contributors Baarishein Lyrics\n[Verse 1]\nline", "[Verse 1]\nline"},
		{"also like", "one\nYou might also like\ntwo", "one\n\ntwo"},
		{"tickets", "a\nSee Anuv Jain LiveGet tickets as low as $20\nb", "a\nb"},
		{"crlf", "a\r\nb", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanScraped(tt.in))
		})
	}
}

func TestCleanScrapedNormalizesNFC(t *testing.T) {
	t.Parallel()

	// "e" followed by a combining acute accent composes to a single rune.
	assert.Equal(t, "caf\u00e9", CleanScraped("cafe\u0301"))
}
