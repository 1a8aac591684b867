package errors

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/lyricgraph/internal/privacy"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// ErrorHook is invoked for every built error while reporting is active.
type ErrorHook func(ee *EnhancedError)

// hasActiveReporting gates the slow Build path.
var hasActiveReporting atomic.Bool

var (
	telemetryMu             sync.RWMutex
	globalTelemetryReporter TelemetryReporter
	errorHooks              []ErrorHook
)

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	scrubbedMessage := privacy.ScrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	component := ee.GetComponent()

	sentry.WithScope(func(scope *sentry.Scope) {
		errorTitle := generateErrorTitle(ee)

		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			scrubbedValue := value
			if strValue, ok := value.(string); ok {
				scrubbedValue = privacy.ScrubMessage(strValue)
			}
			scope.SetContext(key, map[string]any{"value": scrubbedValue})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbedMessage,
		}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle creates a meaningful error title for Sentry based on enhanced error context
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if component := ee.GetComponent(); component != "" {
		titleParts = append(titleParts, titleCase(component))
	}

	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}

	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		titleParts = append(titleParts, formatOperationForTitle(operation))
	}

	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}

	return strings.Join(titleParts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryDatabase:
		return "Database Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryMissingData:
		return "Missing Data"
	case CategoryProvider:
		return "Provider Error"
	case CategoryRateLimit:
		return "Rate Limited"
	case CategoryIngestion:
		return "Ingestion Error"
	default:
		return string(category)
	}
}

// formatOperationForTitle converts operation context to human-readable format
func formatOperationForTitle(operation string) string {
	words := strings.Fields(strings.ReplaceAll(operation, "_", " "))
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

// titleCase capitalizes the first letter of a string
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryRateLimit, CategoryProvider, CategoryTimeout:
		return sentry.LevelWarning // Often transient
	case CategoryFileIO, CategoryStage:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

// SetTelemetryReporter sets the global telemetry reporter
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	globalTelemetryReporter = reporter
	updateReportingState()
}

// AddErrorHook registers a hook called for each built error.
func AddErrorHook(hook ErrorHook) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	errorHooks = append(errorHooks, hook)
	updateReportingState()
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	errorHooks = nil
	updateReportingState()
}

// updateReportingState must be called with telemetryMu held.
func updateReportingState() {
	active := len(errorHooks) > 0 ||
		(globalTelemetryReporter != nil && globalTelemetryReporter.IsEnabled())
	hasActiveReporting.Store(active)
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	telemetryMu.RLock()
	reporter := globalTelemetryReporter
	hooks := errorHooks
	telemetryMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}

	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}
