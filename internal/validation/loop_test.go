package validation

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// scripted returns outputs in order and records the prompt kinds it was asked for.
type scripted struct {
	outputs []string
	errs    []error
	kinds   []PromptKind
	prevs   []*Attempt
}

func (s *scripted) generate(_ context.Context, kind PromptKind, prev *Attempt) (string, error) {
	i := len(s.kinds)
	s.kinds = append(s.kinds, kind)
	s.prevs = append(s.prevs, prev)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return s.outputs[len(s.outputs)-1], nil
}

func TestNext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		rec     Recommendation
		attempt int
		want    State
	}{
		{"accept on first", Accept, 1, StateAccept},
		{"accept on last", Accept, 3, StateAccept},
		{"repair", RegeneratePartial, 1, StateRepairPartial},
		{"regenerate", RegenerateFull, 2, StateRegenerateFull},
		{"exhausted", RegeneratePartial, 3, StateExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Next(&Report{Recommendation: tt.rec}, tt.attempt, DefaultMaxAttempts))
		})
	}
	assert.True(t, StateAccept.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.False(t, StateRepairPartial.Terminal())
}

func TestSelectBest(t *testing.T) {
	t.Parallel()

	empty := SelectBest(nil)
	assert.Equal(t, RegenerateFull, empty.Report.Recommendation)
	assert.Zero(t, empty.Report.OverallScore)
	assert.NotNil(t, empty.Report.FlaggedLines)

	attempts := []Attempt{
		{Number: 1, Report: Report{OverallScore: 0.55}},
		{Number: 2, Report: Report{OverallScore: 0.72}},
		{Number: 3, Report: Report{OverallScore: 0.72}},
	}
	assert.Equal(t, 2, SelectBest(attempts).Number)
	assert.Equal(t, 1, SelectBest(attempts[:1]).Number)
}

func TestLoopAcceptsFirstAttempt(t *testing.T) {
	t.Parallel()

	gen := &scripted{outputs: []string{cleanSong}}
	out, err := NewLoop(New(nil)).Run(t.Context(), songExpectations("meri raat"), gen.generate)
	require.NoError(t, err)

	assert.Equal(t, StateAccept, out.Final)
	assert.Len(t, out.Attempts, 1)
	assert.Equal(t, []PromptKind{PromptInitial}, gen.kinds)
	assert.Nil(t, gen.prevs[0])
	assert.Equal(t, cleanSong, out.Best.Output)
}

func TestLoopRepairsThenAccepts(t *testing.T) {
	t.Parallel()

	gen := &scripted{outputs: []string{copiedSong, cleanSong}}
	out, err := NewLoop(New(nil)).Run(t.Context(), songExpectations("meri raat"), gen.generate)
	require.NoError(t, err)

	assert.Equal(t, StateAccept, out.Final)
	assert.Equal(t, []PromptKind{PromptInitial, PromptRepair}, gen.kinds)
	require.NotNil(t, gen.prevs[1])
	assert.Equal(t, RegeneratePartial, gen.prevs[1].Report.Recommendation)
	assert.Equal(t, 2, out.Best.Number)
	assert.True(t, out.Best.Report.Passed)
}

func TestLoopExhaustsAndKeepsBest(t *testing.T) {
	t.Parallel()

	gen := &scripted{outputs: []string{"", copiedSong, ""}}
	out, err := NewLoop(New(nil)).Run(t.Context(), songExpectations("meri raat"), gen.generate)
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, out.Final)
	assert.Len(t, out.Attempts, DefaultMaxAttempts)
	assert.Equal(t, []PromptKind{PromptInitial, PromptEnhanced, PromptRepair}, gen.kinds)
	assert.Equal(t, 2, out.Best.Number)
	assert.Equal(t, copiedSong, out.Best.Output)
}

func TestLoopNeverExceedsMaxAttempts(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5} {
		gen := &scripted{outputs: []string{""}}
		out, err := NewLoop(New(nil), WithMaxAttempts(n)).Run(t.Context(), songExpectations(), gen.generate)
		require.NoError(t, err)
		assert.Len(t, gen.kinds, n)
		assert.Len(t, out.Attempts, n)
		assert.Equal(t, StateExhausted, out.Final)
	}
	assert.Equal(t, DefaultMaxAttempts, NewLoop(New(nil), WithMaxAttempts(0)).MaxAttempts())
}

func TestLoopGenerationErrors(t *testing.T) {
	t.Parallel()

	t.Run("first attempt fails", func(t *testing.T) {
		t.Parallel()
		gen := &scripted{outputs: []string{cleanSong}, errs: []error{errors.NewStd("provider down")}}
		out, err := NewLoop(New(nil)).Run(t.Context(), nil, gen.generate)
		require.Error(t, err)
		assert.Nil(t, out)
		assert.True(t, errors.IsCategory(err, errors.CategoryProvider))
	})

	t.Run("categorized error kept", func(t *testing.T) {
		t.Parallel()
		limited := errors.Newf("quota exceeded").Category(errors.CategoryRateLimit).Build()
		gen := &scripted{outputs: []string{cleanSong}, errs: []error{limited}}
		_, err := NewLoop(New(nil)).Run(t.Context(), nil, gen.generate)
		assert.True(t, errors.IsCategory(err, errors.CategoryRateLimit))
	})

	t.Run("later attempt fails", func(t *testing.T) {
		t.Parallel()
		gen := &scripted{outputs: []string{""}, errs: []error{nil, errors.NewStd("provider down")}}
		out, err := NewLoop(New(nil)).Run(t.Context(), songExpectations(), gen.generate)
		require.NoError(t, err)
		assert.Equal(t, StateExhausted, out.Final)
		assert.Len(t, out.Attempts, 1)
		assert.Equal(t, 1, out.Best.Number)
	})
}

func TestLoopRecordsMetrics(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewValidationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	gen := &scripted{outputs: []string{""}}
	_, err = NewLoop(New(nil), WithMetrics(m)).Run(t.Context(), songExpectations(), gen.generate)
	require.NoError(t, err)

	// initial and enhanced prompts
	assert.Equal(t, 2, testutil.CollectAndCount(m, "generation_attempts_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m, "validation_recommendations_total"))
	assert.Equal(t, 5, testutil.CollectAndCount(m, "validation_check_score"))
	assert.Equal(t, 1, testutil.CollectAndCount(m, "generation_attempts_per_request"))
}
