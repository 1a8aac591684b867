package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) IsEnabled() bool { return true }

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuildReportsWhenReporterActive(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(fmt.Errorf("graph query failed")).
		Component("datastore").
		Category(CategoryQuery).
		Context("artist", "prateek_kuhad").
		Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
	assert.Equal(t, "datastore", ee.GetComponent())
}

func TestErrorHooksToggleReporting(t *testing.T) {
	SetTelemetryReporter(nil)
	var seen int
	AddErrorHook(func(*EnhancedError) { seen++ })

	_ = New(fmt.Errorf("hooked")).Component("llm").Build()
	assert.Equal(t, 1, seen)

	ClearErrorHooks()
	_ = New(fmt.Errorf("not hooked")).Build()
	assert.Equal(t, 1, seen)
	assert.False(t, hasActiveReporting.Load())
}

func TestMissingDataCarriesHint(t *testing.T) {
	t.Parallel()

	err := MissingData("data/raw/anuv_jain.json", "run the scraper first")

	assert.True(t, IsMissingData(err))
	assert.Equal(t, "run the scraper first", HintOf(err))
	assert.Contains(t, err.Error(), "anuv_jain.json")

	wrapped := fmt.Errorf("setup: %w", err)
	assert.True(t, IsMissingData(wrapped))
	assert.Equal(t, "run the scraper first", HintOf(wrapped))
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	a := New(fmt.Errorf("a")).Category(CategoryRateLimit).Build()
	b := New(fmt.Errorf("b")).Category(CategoryRateLimit).Build()
	c := New(fmt.Errorf("c")).Category(CategoryProvider).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"rate limit message", fmt.Errorf("429 RESOURCE_EXHAUSTED"), "", CategoryRateLimit},
		{"missing file", fmt.Errorf("open x.json: no such file or directory"), "", CategoryMissingData},
		{"timeout", fmt.Errorf("connection timeout"), "", CategoryNetwork},
		{"datastore default", fmt.Errorf("boom"), "datastore", CategoryDatabase},
		{"llm default", fmt.Errorf("boom"), "llm", CategoryProvider},
		{"unknown", fmt.Errorf("boom"), "x", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("disk full")).
		Component("datastore").
		Category(CategoryIngestion).
		Context("operation", "ingest_graph").
		Build()
	assert.Equal(t, "Datastore Ingestion Error Ingest Graph", generateErrorTitle(ee))

	ee = New(NewStd("quota")).Component("llm").Category(CategoryRateLimit).Build()
	assert.Equal(t, "Llm Rate Limited", generateErrorTitle(ee))
}

func TestBuilderContextHelpers(t *testing.T) {
	t.Parallel()

	ee := Newf("write failed").
		Artist("arijit").
		FileContext("/home/user/data/processed/arijit_graph_data.json", 5<<20).
		Hint("check free disk space").
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "arijit", ctx["artist"])
	assert.Equal(t, "arijit_graph_data.json", ctx["file"])
	assert.Equal(t, "large", ctx["file_size"])
	assert.Equal(t, "check free disk space", HintOf(fmt.Errorf("setup: %w", ee)))
}
