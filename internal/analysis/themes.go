package analysis

import (
	"fmt"
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// ThemeMinMatches is the number of distinct theme keywords a song needs to
// count toward a theme.
const ThemeMinMatches = 2

// SongThemes maps every song id to the theme keys it expresses, in lexicon order.
func SongThemes(songs []lyrics.Song, lex *lexicon.Lexicon) map[string][]string {
	out := make(map[string][]string, len(songs))
	for i := range songs {
		themes := lex.MatchThemes(songs[i].FullLyricsClean, ThemeMinMatches)
		if themes == nil {
			themes = []string{}
		}
		out[songs[i].ID] = themes
	}
	return out
}

// ExtractThemes counts songs per theme, most common first.
func ExtractThemes(songs []lyrics.Song, artist string, songThemes map[string][]string) []Theme {
	counts := newTally[string]()
	for i := range songs {
		for _, th := range songThemes[songs[i].ID] {
			counts.add(th, 1)
		}
	}

	themes := make([]Theme, 0, counts.len())
	for _, c := range counts.mostCommon(0) {
		name := lexicon.DisplayName(c.key)
		themes = append(themes, Theme{
			ID:          fmt.Sprintf("%s:theme:%s", artist, c.key),
			Key:         c.key,
			Name:        name,
			Description: "Songs about " + strings.ToLower(name),
			ArtistID:    artist,
			SongCount:   c.count,
		})
	}
	return themes
}
