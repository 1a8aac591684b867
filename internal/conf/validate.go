// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tphakala/lyricgraph/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateMainSettings,
		validateGraphSettings,
		validateAnalysisSettings,
		validateEmbeddingSettings,
		validateLLMSettings,
		validateGenerationSettings,
		validateServerSettings,
		validateTelemetrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateMainSettings(s *Settings) error {
	if s.Main.DataDir == "" {
		return errors.New("main.datadir must not be empty")
	}
	return nil
}

func validateGraphSettings(s *Settings) error {
	g := &s.Graph
	switch g.Backend {
	case BackendSQLite:
	case BackendMySQL:
		if g.MySQL.Host == "" || g.MySQL.Database == "" {
			return errors.New("graph.mysql host and database are required when backend is mysql")
		}
		if _, err := strconv.Atoi(g.MySQL.Port); err != nil {
			return fmt.Errorf("graph.mysql.port must be numeric, got '%s'", g.MySQL.Port)
		}
	default:
		return fmt.Errorf("graph.backend must be '%s' or '%s', got '%s'", BackendSQLite, BackendMySQL, g.Backend)
	}

	if g.MaxOpenStores < 1 {
		return fmt.Errorf("graph.maxopenstores must be at least 1, got %d", g.MaxOpenStores)
	}
	if g.Limits.Phrases < 0 || g.Limits.PhraseLinks < 0 || g.Limits.MeterPatterns < 0 ||
		g.Limits.Structures < 0 || g.Limits.RhymePairs < 0 {
		return errors.New("graph.limits values must be non-negative")
	}
	return nil
}

func validateAnalysisSettings(s *Settings) error {
	a := &s.Analysis
	if a.PhraseMinFrequency < 1 {
		return fmt.Errorf("analysis.phraseminfrequency must be at least 1, got %d", a.PhraseMinFrequency)
	}
	if a.VocabularySize < 1 {
		return fmt.Errorf("analysis.vocabularysize must be at least 1, got %d", a.VocabularySize)
	}
	if a.MetaphorBatchSize < 1 {
		return fmt.Errorf("analysis.metaphorbatchsize must be at least 1, got %d", a.MetaphorBatchSize)
	}
	switch a.ClusterStrategy {
	case ClusterGraphPartition, ClusterCooccurrence:
	default:
		return fmt.Errorf("analysis.clusterstrategy must be '%s' or '%s', got '%s'",
			ClusterGraphPartition, ClusterCooccurrence, a.ClusterStrategy)
	}
	return nil
}

func validateEmbeddingSettings(s *Settings) error {
	e := &s.Embedding
	if e.Dimensions < 8 {
		return fmt.Errorf("embedding.dimensions must be at least 8, got %d", e.Dimensions)
	}
	switch e.Provider {
	case ProviderHashing:
	case ProviderGemini:
		if e.APIKey == "" {
			return errors.New("embedding.provider is gemini but no API key is set (embedding.apikey or GEMINI_API_KEY)")
		}
	default:
		return fmt.Errorf("embedding.provider must be '%s' or '%s', got '%s'", ProviderHashing, ProviderGemini, e.Provider)
	}
	return nil
}

func validateLLMSettings(s *Settings) error {
	l := &s.LLM
	if l.MaxRetries < 1 {
		return fmt.Errorf("llm.maxretries must be at least 1, got %d", l.MaxRetries)
	}
	if l.RateLimit < 0 {
		return fmt.Errorf("llm.ratelimit must be non-negative, got %g", l.RateLimit)
	}

	seen := make(map[string]bool, len(l.Providers))
	for i := range l.Providers {
		p := &l.Providers[i]
		if p.Name == "" {
			p.Name = p.Type
		}
		if seen[p.Name] {
			return fmt.Errorf("llm.providers: duplicate provider name '%s'", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case ProviderGemini:
			if p.APIKey == "" {
				// Providers without credentials are skipped at startup, not rejected.
				GetLogger().Debug("gemini provider has no API key", logger.String("provider", p.Name))
			}
		case ProviderOllama:
			if p.BaseURL == "" {
				return fmt.Errorf("llm.providers[%s]: baseurl is required for ollama", p.Name)
			}
			if err := validateEnvURL(p.BaseURL); err != nil {
				return fmt.Errorf("llm.providers[%s]: %w", p.Name, err)
			}
		default:
			return fmt.Errorf("llm.providers[%s]: unknown type '%s'", p.Name, p.Type)
		}
		if len(p.Models) == 0 {
			return fmt.Errorf("llm.providers[%s]: at least one model is required", p.Name)
		}
	}
	return nil
}

func validateGenerationSettings(s *Settings) error {
	g := &s.Generation
	if g.MaxAttempts < 1 {
		return fmt.Errorf("generation.maxattempts must be at least 1, got %d", g.MaxAttempts)
	}
	if g.Temperature < 0 || g.Temperature > 2 || g.ChatTemperature < 0 || g.ChatTemperature > 2 {
		return errors.New("generation temperatures must be between 0 and 2")
	}
	return nil
}

func validateServerSettings(s *Settings) error {
	if !s.Server.Enabled {
		return nil
	}
	return validateEnvPort(s.Server.Port)
}

func validateTelemetrySettings(s *Settings) error {
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		return errors.New("telemetry.enabled requires telemetry.dsn")
	}
	return nil
}
