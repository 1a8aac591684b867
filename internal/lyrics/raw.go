package lyrics

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// AlbumName is an album title. Scraped records carry it either as a plain
// string or as an object with a name field.
type AlbumName string

// UnmarshalJSON accepts a string, an object with a name field, or null.
func (a *AlbumName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AlbumName(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = AlbumName(obj.Name)
	return nil
}

// RawSong is one scraped song record.
type RawSong struct {
	Title  string    `json:"title"`
	Album  AlbumName `json:"album"`
	Year   *int      `json:"year"`
	Lyrics string    `json:"lyrics"`
	URL    string    `json:"url"`
}

// RawPath returns the raw lyrics file of an artist.
func RawPath(rawDir, artist string) string {
	return filepath.Join(rawDir, artist+".json")
}

// LoadRawSongs reads the scraped lyrics of an artist and cleans every lyric.
func LoadRawSongs(rawDir, artist string) ([]RawSong, error) {
	path := RawPath(rawDir, artist)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingData(path, "run the scraper first")
		}
		return nil, errors.New(err).
			Component("lyrics").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var songs []RawSong
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, errors.New(err).
			Component("lyrics").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Hint("raw lyrics must be a JSON list of {title, album, year, lyrics, url}").
			Build()
	}

	for i := range songs {
		songs[i].Lyrics = CleanScraped(songs[i].Lyrics)
	}
	GetLogger().Debug("loaded raw lyrics",
		logger.String("artist", artist),
		logger.Int("songs", len(songs)))
	return songs, nil
}

var (
	htmlTag          = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	embedSuffix      = regexp.MustCompile(`\d*Embed$`)
	contributorsLine = regexp.MustCompile(`\d+ Contributors?.*?\n`)
	liveTickets      = regexp.MustCompile(`(?i)See .* LiveGet tickets.*?\n`)
)

const alsoLike = "You might also like"

// CleanScraped removes markup and scraper artifacts from lyrics while keeping
// section headers for decomposition. The result is NFC-normalized.
func CleanScraped(lyrics string) string {
	if lyrics == "" {
		return ""
	}
	if htmlTag.MatchString(lyrics) {
		lyrics = html2text.HTML2Text(lyrics)
	}
	lyrics = strings.ReplaceAll(lyrics, "\r\n", "\n")
	lyrics = norm.NFC.String(lyrics)
	lyrics = embedSuffix.ReplaceAllString(lyrics, "")
	lyrics = strings.ReplaceAll(lyrics, alsoLike, "")
	lyrics = contributorsLine.ReplaceAllString(lyrics, "")
	lyrics = liveTickets.ReplaceAllString(lyrics, "")
	lyrics = blankRuns.ReplaceAllString(lyrics, "\n\n")
	return strings.TrimSpace(lyrics)
}
