package validation

import (
	"context"
	"time"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// DefaultMaxAttempts bounds the generate and validate cycles of one request.
const DefaultMaxAttempts = 3

// State is a state of the regeneration loop.
type State string

const (
	StateGenerating     State = "generating"
	StateValidating     State = "validating"
	StateAccept         State = "accept"
	StateRepairPartial  State = "repair_partial"
	StateRegenerateFull State = "regenerate_full"
	StateExhausted      State = "exhausted"
)

// Terminal reports whether s ends the loop.
func (s State) Terminal() bool {
	return s == StateAccept || s == StateExhausted
}

// PromptKind selects the prompt used for an attempt.
type PromptKind string

const (
	PromptInitial  PromptKind = "initial"
	PromptRepair   PromptKind = "repair"
	PromptEnhanced PromptKind = "enhanced"
)

// Attempt is one generated candidate and its report.
type Attempt struct {
	Number int        `json:"number"`
	Prompt PromptKind `json:"prompt"`
	Output string     `json:"output"`
	Report Report     `json:"report"`
}

// Outcome is the result of a finished loop.
type Outcome struct {
	Best     Attempt   `json:"best"`
	Attempts []Attempt `json:"attempts"`
	Final    State     `json:"final_state"`
}

// GenerateFunc produces one candidate. prev is nil for the first attempt.
type GenerateFunc func(ctx context.Context, kind PromptKind, prev *Attempt) (string, error)

// Next returns the state following a validation report. attempt is the
// number of attempts made so far.
func Next(report *Report, attempt, maxAttempts int) State {
	if report.Recommendation == Accept {
		return StateAccept
	}
	if attempt >= maxAttempts {
		return StateExhausted
	}
	if report.Recommendation == RegeneratePartial {
		return StateRepairPartial
	}
	return StateRegenerateFull
}

// promptFor maps a non-terminal state to the prompt of the next attempt.
func promptFor(s State) PromptKind {
	switch s {
	case StateRepairPartial:
		return PromptRepair
	case StateRegenerateFull:
		return PromptEnhanced
	default:
		return PromptInitial
	}
}

// SelectBest returns the attempt with the highest overall score, the earliest
// on ties. An empty list yields a zero attempt recommending full regeneration.
func SelectBest(attempts []Attempt) Attempt {
	if len(attempts) == 0 {
		return Attempt{Report: Report{
			FlaggedLines:   []FlaggedLine{},
			Recommendation: RegenerateFull,
		}}
	}
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Report.OverallScore > best.Report.OverallScore {
			best = a
		}
	}
	return best
}

// Loop runs generation and validation until a candidate is accepted or the
// attempt budget is spent.
type Loop struct {
	validator   *Validator
	maxAttempts int
	metrics     *metrics.ValidationMetrics
	log         logger.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below one are ignored.
func WithMaxAttempts(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithMetrics records attempts and reports.
func WithMetrics(m *metrics.ValidationMetrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// NewLoop returns a loop validating with v.
func NewLoop(v *Validator, opts ...LoopOption) *Loop {
	l := &Loop{
		validator:   v,
		maxAttempts: DefaultMaxAttempts,
		log:         logger.Global().Module("validation"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxAttempts returns the attempt budget.
func (l *Loop) MaxAttempts() int {
	return l.maxAttempts
}

// Run drives the loop. A generation error ends the loop early: with earlier
// attempts the best of them is returned, otherwise the error is.
func (l *Loop) Run(ctx context.Context, exp *Expectations, generate GenerateFunc) (*Outcome, error) {
	var (
		attempts []Attempt
		prev     *Attempt
	)
	state := StateGenerating
	kind := PromptInitial
	log := l.log.WithContext(ctx)

	for !state.Terminal() {
		number := len(attempts) + 1
		start := time.Now()

		output, err := generate(ctx, kind, prev)
		if err != nil {
			l.recordError(kind, err)
			if len(attempts) == 0 {
				var ee *errors.EnhancedError
				if errors.As(err, &ee) {
					return nil, err
				}
				return nil, errors.New(err).
					Component("validation").
					Category(errors.CategoryProvider).
					Context("attempt", number).
					Context("prompt", string(kind)).
					Build()
			}
			log.Warn("generation attempt failed, keeping best earlier attempt",
				logger.Int("attempt", number),
				logger.String("prompt", string(kind)),
				logger.Error(err))
			state = StateExhausted
			break
		}

		report := l.validator.Validate(output, exp)
		attempts = append(attempts, Attempt{
			Number: number,
			Prompt: kind,
			Output: output,
			Report: report,
		})
		prev = &attempts[len(attempts)-1]
		l.recordAttempt(kind, &report, time.Since(start))

		state = Next(&report, number, l.maxAttempts)
		log.Debug("attempt validated",
			logger.Int("attempt", number),
			logger.String("prompt", string(kind)),
			logger.Float64("overall_score", report.OverallScore),
			logger.Int("flagged_lines", len(report.FlaggedLines)),
			logger.String("next_state", string(state)))
		kind = promptFor(state)
	}

	best := SelectBest(attempts)
	if state == StateAccept {
		best = attempts[len(attempts)-1]
	}
	if l.metrics != nil {
		l.metrics.RecordAttemptsUsed(len(attempts))
	}
	log.Info("generation loop finished",
		logger.String("final_state", string(state)),
		logger.Int("attempts", len(attempts)),
		logger.Float64("best_score", best.Report.OverallScore))

	return &Outcome{Best: best, Attempts: attempts, Final: state}, nil
}

func (l *Loop) recordAttempt(kind PromptKind, report *Report, elapsed time.Duration) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordOperation(string(kind), metrics.StatusSuccess)
	l.metrics.RecordDuration(string(kind), elapsed.Seconds())
	l.metrics.RecordReport(string(report.Recommendation), report.OverallScore, report.Checks())
}

func (l *Loop) recordError(kind PromptKind, err error) {
	if l.metrics == nil {
		return
	}
	status := metrics.StatusError
	errType := "error"
	switch {
	case errors.IsCategory(err, errors.CategoryRateLimit):
		status = metrics.StatusRateLimited
		errType = "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		errType = "timeout"
	case errors.Is(err, context.Canceled):
		errType = "canceled"
	}
	l.metrics.RecordOperation(string(kind), status)
	l.metrics.RecordError(string(kind), errType)
}
