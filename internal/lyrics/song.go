// Package lyrics decomposes raw song lyrics into a Song, Section and Line
// hierarchy with per-line linguistic features.
package lyrics

// Line is one non-blank lyric line.
type Line struct {
	ID              string `json:"id"`
	SectionID       string `json:"section_id"`
	SongID          string `json:"song_id"`
	LineIndex       int    `json:"line_index"`
	GlobalLineIndex int    `json:"global_line_index"`
	Text            string `json:"text"`
	Romanized       string `json:"romanized"`
	WordCount       int    `json:"word_count"`
	SyllableCount   int    `json:"syllable_count"`
	Language        string `json:"language"`
	HasCodeSwitch   bool   `json:"has_code_switch"`
	EndWord         string `json:"end_word"`
}

// Section is a structural unit of a song such as a verse or chorus.
type Section struct {
	ID           string `json:"id"`
	SongID       string `json:"song_id"`
	SectionType  string `json:"section_type"`
	SectionIndex int    `json:"section_index"`
	Text         string `json:"text"`
	LineCount    int    `json:"line_count"`
	WordCount    int    `json:"word_count"`
	Language     string `json:"language"`
	Mood         string `json:"mood"`
	Lines        []Line `json:"lines"`
}

// EndWords returns the end word of every line in order.
func (s *Section) EndWords() []string {
	words := make([]string, len(s.Lines))
	for i := range s.Lines {
		words[i] = s.Lines[i].EndWord
	}
	return words
}

// Song is a decomposed song. Sections are ordered by SectionIndex.
type Song struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ArtistID        string    `json:"artist_id"`
	Album           string    `json:"album"`
	Year            *int      `json:"year"`
	Language        string    `json:"language"`
	Mood            string    `json:"mood"`
	FullLyrics      string    `json:"full_lyrics"`
	FullLyricsClean string    `json:"full_lyrics_clean"`
	URL             string    `json:"url"`
	LineCount       int       `json:"line_count"`
	SectionCount    int       `json:"section_count"`
	WordCount       int       `json:"word_count"`
	Sections        []Section `json:"sections"`
}

// SectionTypes returns the section type sequence of the song.
func (s *Song) SectionTypes() []string {
	types := make([]string, len(s.Sections))
	for i := range s.Sections {
		types[i] = s.Sections[i].SectionType
	}
	return types
}

// Lines returns every line of the song in global order.
func (s *Song) Lines() []*Line {
	lines := make([]*Line, 0, s.LineCount)
	for i := range s.Sections {
		for j := range s.Sections[i].Lines {
			lines = append(lines, &s.Sections[i].Lines[j])
		}
	}
	return lines
}
