// Package conf provides configuration management for lyricgraph.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/lyricgraph/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Graph store backends.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Clustering strategies.
const (
	ClusterGraphPartition = "graph"
	ClusterCooccurrence   = "cooccurrence"
)

// Embedding and LLM provider types.
const (
	ProviderGemini  = "gemini"
	ProviderOllama  = "ollama"
	ProviderHashing = "hashing"
)

// ArtistConfig describes one artist persona known to the system.
type ArtistConfig struct {
	Name         string // display name used in prompts
	Language     string // primary language, e.g. "hinglish"
	MusicalStyle string // free text, stored on the Artist node
	VocalStyle   string // free text, stored on the Artist node
	Vocabulary   string // vocabulary level, stored on the Artist node
}

// GraphSettings contains graph store settings.
type GraphSettings struct {
	Backend string // sqlite or mysql

	SQLite struct {
		Dir string // directory holding one database file per artist
	}

	MySQL MySQLSettings

	MaxOpenStores      int           // number of artist stores kept open at once
	SlowQueryThreshold time.Duration // queries slower than this are logged at warn

	Limits struct {
		Phrases       int // phrases ingested per artist
		PhraseLinks   int // phrase links per line
		MeterPatterns int // meter patterns ingested per artist
		Structures    int // structure templates ingested per artist
		RhymePairs    int // rhyme pairs ingested per artist
	}
}

// MySQLSettings contains settings for the MySQL graph backend.
type MySQLSettings struct {
	Host         string // host for mysql database
	Port         string // port for mysql database
	Username     string // username for mysql database
	Password     string // password for mysql database, ${VAR} references are expanded
	PasswordFile string // file holding the password, takes precedence
	Database     string // database name, artist slug is appended
}

// AnalysisSettings contains settings for the one-time analysis pipeline.
type AnalysisSettings struct {
	PhraseMinFrequency  int    // minimum occurrences for a recurring phrase
	MeterMinFrequency   int    // minimum occurrences for a meter pattern
	VocabularySize      int    // size of the fingerprint vocabulary set
	MetaphorBatchSize   int    // sections per LLM metaphor extraction call
	MetaphorMaxSections int    // sections sent to the LLM in total
	UseLLMMetaphors     bool   // true to extract metaphors with the LLM when available
	ClusterStrategy     string // graph or cooccurrence
	LexiconPath         string // optional lexicon override file
}

// EmbeddingSettings contains settings for the embedding collaborator.
type EmbeddingSettings struct {
	Provider   string        // gemini or hashing
	Model      string        // embedding model name
	Dimensions int           // vector width
	APIKey     string        // API key for remote providers
	APIKeyFile string        // file holding the API key, takes precedence
	CacheTTL   time.Duration // query embedding cache lifetime
}

// ProviderConfig configures one LLM provider in the fallback chain.
type ProviderConfig struct {
	Name       string   // label used in logs and metrics
	Type       string   // gemini or ollama
	Models     []string // models tried in order
	APIKey     string   // API key, gemini only
	APIKeyFile string   // file holding the API key, takes precedence
	BaseURL    string   // server URL, ollama only
}

// LLMSettings contains settings for the LLM collaborator.
type LLMSettings struct {
	Providers      []ProviderConfig // tried in order
	MaxRetries     int              // attempts per model on rate limit
	RetryBaseDelay time.Duration    // wait is (attempt+1) * base
	RateLimit      float64          // requests per second per provider, 0 disables
	Burst          int              // rate limiter burst
	Timeout        time.Duration    // per request timeout
	MaxTokens      int              // output token cap
}

// GenerationSettings contains settings for song generation and chat.
type GenerationSettings struct {
	MaxAttempts     int     // generation attempts before the best one is returned
	Temperature     float64 // sampling temperature for songs
	ChatTemperature float64 // sampling temperature for chat
	MaxHistory      int     // chat exchanges kept per conversation
}

// RetrievalSettings contains settings for the retrieval pipeline.
type RetrievalSettings struct {
	StageTimeout time.Duration // timeout for a single stage, 0 disables
}

// ServerSettings contains HTTP API settings.
type ServerSettings struct {
	Enabled bool   // true to enable the HTTP API
	Host    string // listen address
	Port    string // listen port
	Debug   bool   // true to enable echo debug mode
}

// TelemetrySettings contains error reporting settings.
type TelemetrySettings struct {
	Enabled     bool   // true to report errors to Sentry
	DSN         string // Sentry DSN
	DSNFile     string // file holding the DSN, takes precedence
	Environment string // Sentry environment tag
}

// Settings contains all configuration options for lyricgraph.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"`
	BuildDate string `yaml:"-"`

	Main struct {
		Name    string // instance name
		DataDir string // root of raw, processed and graphstore directories
	}

	Logging logger.LoggingConfig

	Graph      GraphSettings
	Analysis   AnalysisSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Generation GenerationSettings
	Retrieval  RetrievalSettings
	Server     ServerSettings
	Telemetry  TelemetrySettings

	Artists map[string]ArtistConfig // keyed by artist slug
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// Load reads the configuration file and environment variables into a new Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := applyEnvSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment variable configuration issues", logger.Error(err))
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default configuration.
func getDefaultConfig() string {
	data, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file from embedded FS: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings, loading them on first use.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig writes settings to configPath through a temporary file.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// Artist returns the configuration for slug.
func (s *Settings) Artist(slug string) (ArtistConfig, error) {
	if a, ok := s.Artists[slug]; ok {
		if a.Name == "" {
			a.Name = slug
		}
		return a, nil
	}
	return ArtistConfig{}, fmt.Errorf("artist '%s' not found. Available: %s",
		slug, strings.Join(s.ArtistSlugs(), ", "))
}

// ArtistSlugs returns configured artist slugs in sorted order.
func (s *Settings) ArtistSlugs() []string {
	slugs := make([]string, 0, len(s.Artists))
	for slug := range s.Artists {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	return slugs
}

// RawDir is where scraped lyrics are read from.
func (s *Settings) RawDir() string {
	return filepath.Join(s.Main.DataDir, "raw")
}

// ProcessedDir is where analysis artifacts are written.
func (s *Settings) ProcessedDir() string {
	return filepath.Join(s.Main.DataDir, "processed")
}

// GraphDir is where per-artist SQLite graph stores live.
func (s *Settings) GraphDir() string {
	if s.Graph.SQLite.Dir != "" {
		return s.Graph.SQLite.Dir
	}
	return filepath.Join(s.Main.DataDir, "graphstore")
}
