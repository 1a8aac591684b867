package logger

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys added by module loggers.
var (
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// newTextHandler builds the console handler. Timestamps are omitted because the
// execution environment (journald, Docker) adds its own.
func newTextHandler(w io.Writer, level slog.Level, _ *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				return slog.String(slog.LevelKey, levelLabel(a.Value))
			}
			return a
		},
	})
}

// newJSONHandler builds the file handler with timestamps rendered in tz.
func newJSONHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	if tz == nil {
		tz = time.UTC
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.In(tz).Format(time.RFC3339))
				}
			case slog.LevelKey:
				return slog.String(slog.LevelKey, levelLabel(a.Value))
			}
			return a
		},
	})
}

func levelLabel(v slog.Value) string {
	lvl, ok := v.Any().(slog.Level)
	if !ok {
		return v.String()
	}
	if lvl <= traceLevelValue {
		return "TRACE"
	}
	return lvl.String()
}

// NewSlogLogger returns a standalone JSON Logger writing to w. A nil writer discards
// output. Intended for tests and for components built before the central logger.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = io.Discard
	}
	if tz == nil {
		tz = time.UTC
	}
	slogLevel := parseSlogLevel(level)
	return &moduleLogger{
		logger:   slog.New(newJSONHandler(w, slogLevel, tz)),
		level:    slogLevel,
		timezone: tz,
	}
}

// parseSlogLevel converts a LogLevel to slog.Level
func parseSlogLevel(level LogLevel) slog.Level {
	return parseLogLevel(string(level))
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return traceLevelValue
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
