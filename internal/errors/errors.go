// Package errors builds categorized errors that carry a component, context
// values and a remediation hint, and forwards them to an optional reporter.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryNetwork       ErrorCategory = "network"
	CategoryDatabase      ErrorCategory = "database"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryGeneric       ErrorCategory = "generic"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryState         ErrorCategory = "state"

	// Knowledge graph and generation categories
	CategoryMissingData ErrorCategory = "missing-data"   // Required upstream artifact absent
	CategoryStage       ErrorCategory = "stage-failure"  // Single retrieval stage failed
	CategoryProvider    ErrorCategory = "provider"       // LLM or embedding provider failure
	CategoryRateLimit   ErrorCategory = "rate-limit"     // Provider signalled rate limiting
	CategoryEmbedding   ErrorCategory = "embedding"      // Embedding generation
	CategoryIngestion   ErrorCategory = "ingestion"      // Graph ingestion
	CategoryQuery       ErrorCategory = "graph-query"    // Graph facet queries
	CategoryAnalysis    ErrorCategory = "lyric-analysis" // Structural/linguistic analysis

	CategoryTimeout      ErrorCategory = "timeout"
	CategoryCancellation ErrorCategory = "cancellation"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// modulePath is the import path prefix used to skip this package during stack walks.
const modulePath = "github.com/tphakala/lyricgraph/internal/errors"

// EnhancedError is an error annotated with where it happened and what the
// user can do about it.
type EnhancedError struct {
	Err       error
	component string // detected lazily when empty
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
	reported  bool
	detected  bool
	mu        sync.RWMutex
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, detecting it lazily if needed
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()

	// Double-check in case another goroutine detected it while we were waiting
	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}

	return ee.component
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// hint returns the remediation hint attached to the error, if any.
func (ee *EnhancedError) hint() string {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	hint, _ := ee.Context["hint"].(string)
	return hint
}

// MarkReported marks this error as reported to telemetry
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether this error has been reported
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Hint attaches a user-facing remediation hint.
func (eb *ErrorBuilder) Hint(hint string) *ErrorBuilder {
	return eb.Context("hint", hint)
}

// Artist scopes the error to one artist slug.
func (eb *ErrorBuilder) Artist(slug string) *ErrorBuilder {
	return eb.Context("artist", slug)
}

// FileContext records the artifact file name and a coarse size class.
// Directories are left out so reports do not carry local paths.
func (eb *ErrorBuilder) FileContext(path string, size int64) *ErrorBuilder {
	if path != "" {
		eb.Context("file", filepath.Base(path))
	}
	if size > 0 {
		eb.Context("file_size", sizeClass(size))
	}
	return eb
}

// Build creates the EnhancedError and triggers optional telemetry reporting
func (eb *ErrorBuilder) Build() *EnhancedError {
	// Fast path - skip expensive operations if no reporting is active
	if !hasActiveReporting.Load() {
		ee := &EnhancedError{
			Err:       eb.err,
			component: eb.component,
			Category:  eb.category,
			Context:   eb.context,
			Timestamp: time.Now(),
			detected:  eb.component != "",
		}
		if ee.component == "" {
			ee.component = ComponentUnknown
			ee.detected = true
		}
		if ee.Category == "" {
			ee.Category = CategoryGeneric
		}
		return ee
	}

	if eb.component == "" {
		eb.component = detectComponent()
	}
	if eb.category == "" {
		eb.category = detectCategory(eb.err, eb.component)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  true,
	}

	reportToTelemetry(ee)

	return ee
}

// Component registry for dynamic component detection
var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// registerComponent registers a package path pattern with a component name
func registerComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	registerComponent("internal/lyrics", "lyrics")
	registerComponent("internal/phonetics", "phonetics")
	registerComponent("internal/analysis", "analysis")
	registerComponent("internal/cluster", "cluster")
	registerComponent("internal/datastore", "datastore")
	registerComponent("internal/embedding", "embedding")
	registerComponent("internal/llm", "llm")
	registerComponent("internal/search", "search")
	registerComponent("internal/retrieval", "retrieval")
	registerComponent("internal/validation", "validation")
	registerComponent("internal/generation", "generation")
	registerComponent("internal/conf", "configuration")
	registerComponent("internal/lexicon", "lexicon")
	registerComponent("internal/api", "api")
	registerComponent("internal/app", "app")
	registerComponent("internal/secrets", "secrets")
	registerComponent("internal/telemetry", "telemetry")
}

// quickComponentLookup tries to detect component from a specific caller depth
func quickComponentLookup(depth int) string {
	pc, _, _, ok := runtime.Caller(depth)
	if !ok {
		return ""
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}

	funcName := fn.Name()
	if strings.Contains(funcName, modulePath) {
		return ""
	}

	return lookupComponent(funcName)
}

// detectComponent automatically detects the component based on the call stack
func detectComponent() string {
	for _, depth := range []int{4, 5, 6, 7} {
		if component := quickComponentLookup(depth); component != "" && component != ComponentUnknown {
			return component
		}
	}

	return detectComponentFull()
}

// detectComponentFull walks the entire call stack to find the component
func detectComponentFull() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)

	if n == len(pcs) {
		pcs = make([]uintptr, 32)
		n = runtime.Callers(2, pcs)
	}

	for i := range n {
		fn := runtime.FuncForPC(pcs[i])
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if strings.Contains(funcName, modulePath) {
			continue
		}

		if component := lookupComponent(funcName); component != ComponentUnknown {
			return component
		}
	}

	return ComponentUnknown
}

// lookupComponent searches the registry for a matching component
func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}

	// Fallback: extract from package path
	parts := strings.Split(funcName, "/")
	if len(parts) > 0 {
		lastPart := parts[len(parts)-1]
		if dotIndex := strings.Index(lastPart, "."); dotIndex > 0 {
			return lastPart[:dotIndex]
		}
	}

	return ComponentUnknown
}

// detectCategory automatically detects error category based on error message and component
func detectCategory(err error, component string) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	errorMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errorMsg, "rate limit") || strings.Contains(errorMsg, "resource_exhausted"):
		return CategoryRateLimit
	case strings.Contains(errorMsg, "no such file") || strings.Contains(errorMsg, "not exist"):
		return CategoryMissingData
	case strings.Contains(errorMsg, "file") || strings.Contains(errorMsg, "read") || strings.Contains(errorMsg, "open"):
		return CategoryFileIO
	case strings.Contains(errorMsg, "connection") || strings.Contains(errorMsg, "timeout"):
		return CategoryNetwork
	case strings.Contains(errorMsg, "validation") || strings.Contains(errorMsg, "invalid"):
		return CategoryValidation
	}

	switch component {
	case "datastore":
		return CategoryDatabase
	case "llm", "embedding":
		return CategoryProvider
	case "configuration":
		return CategoryConfiguration
	case "lyrics", "phonetics", "analysis":
		return CategoryAnalysis
	}

	return CategoryGeneric
}

func sizeClass(size int64) string {
	switch {
	case size < 64<<10:
		return "small"
	case size < 4<<20:
		return "medium"
	default:
		return "large"
	}
}

// MissingData creates an error naming a required artifact that is absent.
func MissingData(artifact, hint string) *EnhancedError {
	return Newf("required artifact not found: %s", artifact).
		Category(CategoryMissingData).
		Context("artifact", artifact).
		Hint(hint).
		Build()
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// Standard library passthrough functions

// NewStd creates a new standard error (passthrough to standard library)
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target (passthrough to standard library)
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target (passthrough to standard library)
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err (passthrough to standard library)
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors (passthrough to standard library)
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsMissingData checks if an error reports an absent upstream artifact.
func IsMissingData(err error) bool {
	return IsCategory(err, CategoryMissingData)
}

// HintOf returns the first remediation hint found in err's tree.
func HintOf(err error) string {
	var enhancedErr *EnhancedError
	if As(err, &enhancedErr) {
		return enhancedErr.hint()
	}
	return ""
}
