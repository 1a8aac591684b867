// Package api provides the HTTP API for lyricgraph: song generation, artist
// chat, graph search and retrieval inspection over echo.
package api

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultPort            = "8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 180 * time.Second // generation runs up to three LLM calls
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string // Host to bind to (empty for all interfaces)
	Port string // Port to listen on

	AllowedOrigins []string // CORS allowed origins

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string // Maximum request body size (e.g., "1M")

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	cfg.Host = settings.Server.Host
	if settings.Server.Port != "" {
		cfg.Port = settings.Server.Port
	}
	cfg.Debug = settings.Server.Debug || settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	// echo's body limit middleware panics on a malformed size.
	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}
