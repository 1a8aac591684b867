// Package telemetry forwards built errors to Sentry when error reporting is
// enabled, with user and host identifying data stripped from every event.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/privacy"
)

const defaultEnvironment = "production"

// allowedExtras are the only extra fields kept on outgoing events.
var allowedExtras = map[string]bool{
	"error_type": true,
	"component":  true,
	"category":   true,
}

// InitSentry initializes the Sentry SDK and installs the error reporter. It
// reports false without error when telemetry is disabled or has no DSN.
func InitSentry(settings *conf.Settings) (bool, error) {
	t := &settings.Telemetry
	if !t.Enabled || t.DSN == "" {
		return false, nil
	}
	env := t.Environment
	if env == "" {
		env = defaultEnvironment
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              t.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "", // keep the hostname out of events
		Release:          fmt.Sprintf("lyricgraph@%s", settings.Version),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	logger.Global().Module("telemetry").Info("error reporting enabled",
		logger.String("environment", env))
	return true, nil
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// applyPrivacyFilters removes user, host and runtime data from event and
// scrubs credentials from its messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if !allowedExtras[k] {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
