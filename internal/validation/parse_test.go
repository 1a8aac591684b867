package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	t.Parallel()

	sections := ParseOutput("[Verse 1]\nBaarish ki boondein\nYaadon ki raat\n[Chorus]\nTu hi tu\nTu hi tu")
	require.Len(t, sections, 2)
	assert.Equal(t, "verse", sections[0].Type)
	assert.Equal(t, []string{"Baarish ki boondein", "Yaadon ki raat"}, sections[0].Lines)
	assert.Equal(t, "chorus", sections[1].Type)
	assert.Equal(t, "Tu hi tu\nTu hi tu", sections[1].Text())
}

func TestParseOutputDirectionsAndLeadingLines(t *testing.T) {
	t.Parallel()

	text := "opening words\n\n[Pre-Chorus]\ndheere se [softly]\n[whisper] skipped line\n[Instrumental break\n[Hook]\ntu hi [echo]\n[Mukhda]\n[Outro]\n(fade) bas"
	sections := ParseOutput(text)
	require.Len(t, sections, 4)

	assert.Equal(t, "intro", sections[0].Type)
	assert.Equal(t, []string{"opening words"}, sections[0].Lines)
	assert.Equal(t, "pre_chorus", sections[1].Type)
	assert.Equal(t, []string{"dheere se"}, sections[1].Lines)
	assert.Equal(t, "chorus", sections[2].Type)
	assert.Equal(t, []string{"tu hi"}, sections[2].Lines)
	// the empty [Mukhda] section is dropped
	assert.Equal(t, "outro", sections[3].Type)
	assert.Equal(t, []string{"(fade) bas"}, sections[3].Lines)
}

func TestClassifyHeader(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Verse 2":    "verse",
		"CHORUS":     "chorus",
		"Hook":       "chorus",
		"Pre-Chorus": "pre_chorus",
		"Prelude":    "pre_chorus",
		"Bridge":     "bridge",
		"Outro":      "outro",
		"Intro":      "intro",
		"Antara":     "verse",
	}
	for header, want := range tests {
		assert.Equal(t, want, classifyHeader(header), header)
	}
}
