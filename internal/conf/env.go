// env.go - Environment variable configuration and validation for lyricgraph
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/lyricgraph/internal/secrets"
)

// Env-only keys that are folded into provider entries after unmarshal.
const (
	envKeyGeminiAPIKey = "secrets.geminiapikey"
	envKeyOllamaHost   = "secrets.ollamahost"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "LYRICGRAPH_DEBUG", validateEnvBool},
		{"main.datadir", "LYRICGRAPH_DATA_DIR", nil},
		{"logging.default_level", "LYRICGRAPH_LOG_LEVEL", validateEnvLogLevel},

		// Graph store
		{"graph.backend", "LYRICGRAPH_GRAPH_BACKEND", validateEnvBackend},
		{"graph.mysql.host", "LYRICGRAPH_MYSQL_HOST", nil},
		{"graph.mysql.port", "LYRICGRAPH_MYSQL_PORT", validateEnvPort},
		{"graph.mysql.username", "LYRICGRAPH_MYSQL_USERNAME", nil},
		{"graph.mysql.password", "LYRICGRAPH_MYSQL_PASSWORD", nil},

		// Providers
		{"embedding.provider", "LYRICGRAPH_EMBEDDING_PROVIDER", validateEnvEmbeddingProvider},
		{"llm.retrybasedelay", "LYRICGRAPH_LLM_RETRY_DELAY", validateEnvDuration},
		{envKeyGeminiAPIKey, "GEMINI_API_KEY", nil},
		{envKeyOllamaHost, "OLLAMA_HOST", validateEnvURL},

		// Server and telemetry
		{"server.port", "LYRICGRAPH_PORT", validateEnvPort},
		{"telemetry.enabled", "LYRICGRAPH_TELEMETRY", validateEnvBool},
		{"telemetry.dsn", "SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}

// applyEnvSecrets fills provider credentials that only arrive through the
// environment and resolves secret files and ${VAR} references. Placeholder
// values such as "your_api_key" are treated as unset.
func applyEnvSecrets(settings *Settings) error {
	geminiKey := viper.GetString(envKeyGeminiAPIKey)
	if isPlaceholder(geminiKey) {
		geminiKey = ""
	}
	ollamaHost := viper.GetString(envKeyOllamaHost)

	for i := range settings.LLM.Providers {
		p := &settings.LLM.Providers[i]
		if err := resolveSecret(&p.APIKey, p.APIKeyFile); err != nil {
			return fmt.Errorf("llm provider %s api key: %w", p.Name, err)
		}
		switch p.Type {
		case ProviderGemini:
			if p.APIKey == "" {
				p.APIKey = geminiKey
			}
		case ProviderOllama:
			if ollamaHost != "" {
				p.BaseURL = ollamaHost
			}
		}
	}

	if err := resolveSecret(&settings.Embedding.APIKey, settings.Embedding.APIKeyFile); err != nil {
		return fmt.Errorf("embedding api key: %w", err)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = geminiKey
	}
	if err := resolveSecret(&settings.Graph.MySQL.Password, settings.Graph.MySQL.PasswordFile); err != nil {
		return fmt.Errorf("mysql password: %w", err)
	}
	if err := resolveSecret(&settings.Telemetry.DSN, settings.Telemetry.DSNFile); err != nil {
		return fmt.Errorf("sentry dsn: %w", err)
	}
	return nil
}

// resolveSecret replaces *value with the resolved secret.
func resolveSecret(value *string, file string) error {
	if isPlaceholder(*value) {
		*value = ""
	}
	resolved, err := secrets.Resolve(file, *value)
	if err != nil {
		return err
	}
	*value = resolved
	return nil
}

func isPlaceholder(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "your_")
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got '%s'", value)
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendSQLite, BackendMySQL:
		return nil
	}
	return fmt.Errorf("must be one of: %s, %s", BackendSQLite, BackendMySQL)
}

func validateEnvEmbeddingProvider(value string) error {
	switch value {
	case ProviderHashing, ProviderGemini:
		return nil
	}
	return fmt.Errorf("must be one of: %s, %s", ProviderHashing, ProviderGemini)
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", d)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got '%s'", value)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host, got '%s'", value)
	}
	return nil
}
