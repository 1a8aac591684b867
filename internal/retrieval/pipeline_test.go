package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

const testArtist = "test_artist"

// fakeStore serves fixed facet rows. It is read-only once built so stages
// may query it concurrently.
type fakeStore struct {
	datastore.Interface

	fail  map[string]error
	block bool
}

func (f *fakeStore) err(query string) error { return f.fail[query] }

func (f *fakeStore) Artist() string { return testArtist }

func (f *fakeStore) TopPhrases(_ context.Context, minFrequency, limit int) ([]datastore.Phrase, error) {
	if err := f.err("phrases"); err != nil {
		return nil, err
	}
	return []datastore.Phrase{{Text: "tu hi tu", Frequency: 7}, {Text: "dil se", Frequency: minFrequency}}, nil
}

func (f *fakeStore) TopRhymePairs(context.Context, int) ([]datastore.RhymePair, error) {
	if err := f.err("rhymes"); err != nil {
		return nil, err
	}
	return []datastore.RhymePair{{WordA: "baat", WordB: "raat", RhymeType: "perfect", Frequency: 4}}, nil
}

func (f *fakeStore) EmotionalArcs(context.Context, int) ([]datastore.EmotionalArc, error) {
	if err := f.err("arcs"); err != nil {
		return nil, err
	}
	return []datastore.EmotionalArc{{
		SongID:       testArtist + ":song_1",
		ArcType:      analysis.ArcGentleRise,
		MoodSequence: datatypes.JSONSlice[string]{"melancholic", "hopeful"},
	}}, nil
}

func (f *fakeStore) MoodTransitions(context.Context, int) ([]datastore.MoodTransition, error) {
	return []datastore.MoodTransition{{From: "melancholic", To: "hopeful", Frequency: 3}}, nil
}

func (f *fakeStore) TopMetaphors(ctx context.Context, _ int) ([]datastore.Metaphor, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.err("metaphors"); err != nil {
		return nil, err
	}
	return []datastore.Metaphor{{SourceText: "dil ka dariya", SourceDomain: "water", TargetDomain: "emotion", Frequency: 2}}, nil
}

func (f *fakeStore) TopCulturalReferences(context.Context, int) ([]datastore.CulturalReference, error) {
	if err := f.err("cultural"); err != nil {
		return nil, err
	}
	return []datastore.CulturalReference{{ReferenceText: "baarish", Category: "nature", CulturalContext: "monsoon", Frequency: 5}}, nil
}

func (f *fakeStore) TopStructures(context.Context, int) ([]datastore.StructureTemplate, error) {
	if err := f.err("structures"); err != nil {
		return nil, err
	}
	return []datastore.StructureTemplate{{
		Pattern:      "verse-chorus-verse-chorus",
		SectionTypes: datatypes.JSONSlice[string]{"verse", "chorus", "verse", "chorus"},
		Frequency:    3,
	}}, nil
}

func (f *fakeStore) SectionAverageLines(context.Context) (map[string]float64, error) {
	return map[string]float64{"verse": 4.25, "chorus": 2}, nil
}

func (f *fakeStore) Fingerprint(context.Context) (*datastore.StyleFingerprint, error) {
	if err := f.err("fingerprint"); err != nil {
		return nil, err
	}
	return &datastore.StyleFingerprint{
		ID:             analysis.FingerprintID(testArtist),
		ArtistID:       testArtist,
		AvgLineLength:  5.5,
		TopRhymeTypes:  datatypes.JSONSlice[string]{"AABB", "ABAB", "FREE", "ABCB", "ABBA", "AAAA"},
		VocabularySet:  datatypes.JSONSlice[string]{"dil", "raat", "baarish"},
		AntiVocabulary: datatypes.JSONSlice[string]{"yeah"},
	}, nil
}

func (f *fakeStore) KeywordCandidates(context.Context, datastore.NodeType, []string) ([]datastore.TextNode, error) {
	if err := f.err("keyword"); err != nil {
		return nil, err
	}
	return []datastore.TextNode{{
		ID:        testArtist + ":song_1:sec_0",
		NodeType:  datastore.NodeSection,
		Text:      "Baarish ki boondein",
		MatchText: "Baarish ki boondein",
		Metadata:  map[string]any{"section_type": "verse", "mood": "peaceful", "line_count": 2},
	}}, nil
}

func (f *fakeStore) NearestNodes(context.Context, datastore.NodeType, []float32, int) ([]datastore.ScoredNode, error) {
	return nil, nil
}

// fakeStores resolves every artist to one store.
type fakeStores struct {
	store     *fakeStore
	exists    bool
	existsErr error
}

func (f *fakeStores) GraphExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStores) Get(context.Context, string) (datastore.Interface, error) {
	return f.store, nil
}

func newStores(store *fakeStore) *fakeStores {
	return &fakeStores{store: store, exists: true}
}

func TestExecuteRunsEveryStage(t *testing.T) {
	t.Parallel()
	p := NewPipeline(newStores(&fakeStore{}), nil)

	res := p.Execute(t.Context(), testArtist, AnalyzeRequest("baarish nights", nil))

	assert.True(t, res.GraphPowered)
	assert.Empty(t, res.FailedStages)

	require.Len(t, res.ThematicSections, 1)
	sec := res.ThematicSections[0]
	assert.Equal(t, "verse", sec.SectionType)
	assert.Equal(t, "peaceful", sec.Mood)
	assert.Equal(t, 2, sec.LineCount)
	assert.Equal(t, "keyword", sec.Source)

	assert.Equal(t, []string{"tu hi tu", "dil se"}, res.SignaturePhrases)
	assert.Equal(t, []string{"dil", "raat", "baarish"}, res.VocabularyClusters)
	assert.Equal(t, []string{"yeah"}, res.AntiVocabulary)
	assert.Equal(t, []string{"AABB", "ABAB", "FREE", "ABCB", "ABBA"}, res.RhymeSchemes)
	require.Len(t, res.TopRhymePairs, 1)
	assert.Equal(t, "perfect", res.TopRhymePairs[0].RhymeType)
	require.Len(t, res.CommonArcs, 1)
	assert.Equal(t, []string{"melancholic", "hopeful"}, res.CommonArcs[0].MoodSequence)
	assert.Len(t, res.MoodTransitions, 1)
	assert.Len(t, res.Metaphors, 1)
	require.Len(t, res.CulturalReferences, 1)
	assert.Equal(t, "monsoon", res.CulturalReferences[0].Context)
	require.Len(t, res.Structures, 1)
	assert.Equal(t, []string{"verse", "chorus", "verse", "chorus"}, res.Structures[0].SectionTypes)
	assert.InDelta(t, 4.3, res.AvgLinesPerSection["verse"], 1e-9)
	assert.InDelta(t, 5.5, res.Fingerprint.AvgLineLength, 1e-9)
	assert.True(t, res.HasFingerprint())
}

func TestExecuteIsolatesStageFailures(t *testing.T) {
	t.Parallel()
	store := &fakeStore{fail: map[string]error{
		"phrases":   fmt.Errorf("phrases table locked"),
		"metaphors": fmt.Errorf("boom"),
	}}
	p := NewPipeline(newStores(store), nil)

	res := p.Execute(t.Context(), testArtist, AnalyzeRequest("baarish", nil))

	assert.Equal(t, []string{"stage2_vocabulary", "stage5_metaphors"}, res.FailedStages)
	assert.NotNil(t, res.SignaturePhrases)
	assert.Empty(t, res.SignaturePhrases)
	assert.Empty(t, res.VocabularyClusters, "a failed stage sets none of its fields")
	assert.NotNil(t, res.Metaphors)
	assert.Empty(t, res.Metaphors)

	assert.Len(t, res.TopRhymePairs, 1, "sibling stages still complete")
	assert.Len(t, res.CulturalReferences, 1)
	assert.Len(t, res.ThematicSections, 1)
}

func TestExecuteStageTimeout(t *testing.T) {
	t.Parallel()
	p := NewPipeline(newStores(&fakeStore{block: true}), nil, WithStageTimeout(20*time.Millisecond))

	res := p.Execute(t.Context(), testArtist, AnalyzeRequest("rain", nil))

	assert.Equal(t, []string{"stage5_metaphors"}, res.FailedStages)
	assert.Empty(t, res.Metaphors)
	assert.Len(t, res.Structures, 1)
}

func TestExecuteMissingFingerprintKeepsEmpty(t *testing.T) {
	t.Parallel()
	store := &fakeStore{fail: map[string]error{
		"fingerprint": errors.Newf("style fingerprint not found").Category(errors.CategoryNotFound).Build(),
	}}
	p := NewPipeline(newStores(store), nil)

	res := p.Execute(t.Context(), testArtist, AnalyzeRequest("rain", nil))

	assert.Empty(t, res.FailedStages)
	assert.Equal(t, analysis.FingerprintID(testArtist), res.Fingerprint.ID)
	assert.NotNil(t, res.Fingerprint.VocabularySet)
	assert.Empty(t, res.VocabularyClusters)
	assert.Empty(t, res.RhymeSchemes)
}

func TestExecutePrefersFingerprintFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	adv := &analysis.Advanced{Fingerprint: analysis.EmptyFingerprint(testArtist)}
	adv.Fingerprint.VocabularySet = []string{"sapna"}
	adv.Fingerprint.TopRhymeTypes = []string{"ABCB"}
	require.NoError(t, analysis.WriteAdvanced(dir, testArtist, adv))

	p := NewPipeline(newStores(&fakeStore{}), nil, WithProcessedDir(dir))
	res := p.Execute(t.Context(), testArtist, AnalyzeRequest("rain", nil))

	assert.Equal(t, []string{"sapna"}, res.VocabularyClusters)
	assert.Equal(t, []string{"ABCB"}, res.RhymeSchemes)
}

func TestExecuteWithoutGraph(t *testing.T) {
	t.Parallel()
	for name, stores := range map[string]*fakeStores{
		"no graph":    {store: &fakeStore{}},
		"check fails": {store: &fakeStore{}, existsErr: fmt.Errorf("disk gone")},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res := NewPipeline(stores, nil).Execute(t.Context(), testArtist, AnalyzeRequest("rain", nil))
			assert.False(t, res.GraphPowered)
			assert.Equal(t, NewResult(testArtist), res)
		})
	}
}

func TestExecuteWithRegistryForUnknownArtist(t *testing.T) {
	t.Parallel()
	settings := &conf.Settings{}
	settings.Main.DataDir = t.TempDir()
	registry, err := datastore.NewRegistry(settings)
	require.NoError(t, err)
	defer registry.Close()

	res := NewPipeline(registry, nil).Execute(t.Context(), "nobody", AnalyzeRequest("rain", nil))
	assert.False(t, res.GraphPowered)
	assert.NoFileExists(t, datastore.SQLitePath(settings.GraphDir(), "nobody"))
}

func TestExecuteRecordsMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m, err := metrics.NewRetrievalMetrics(registry)
	require.NoError(t, err)

	store := &fakeStore{fail: map[string]error{"cultural": fmt.Errorf("boom")}}
	p := NewPipeline(newStores(store), nil, WithMetrics(m))
	p.Execute(t.Context(), testArtist, AnalyzeRequest("rain", nil))

	families, err := registry.Gather()
	require.NoError(t, err)
	counts := map[string]int{}
	for _, f := range families {
		counts[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, len(StageNames()), counts["retrieval_stage_duration_seconds"])
	assert.Equal(t, 1, counts["retrieval_stage_errors_total"])
	assert.Equal(t, 1, testutil.CollectAndCount(m, "retrieval_pipeline_duration_seconds"))
}

func TestStageNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{
		"stage1_thematic", "stage2_vocabulary", "stage3_rhyme", "stage4_arcs",
		"stage5_metaphors", "stage6_cultural", "stage7_structures", "fingerprint",
	}, StageNames())
}
