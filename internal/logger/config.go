package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel  string                  `yaml:"default_level" json:"default_level" mapstructure:"default_level"`
	Timezone      string                  `yaml:"timezone" json:"timezone" mapstructure:"timezone"` // "Local", "UTC", or an IANA name
	Console       *ConsoleOutput          `yaml:"console" json:"console" mapstructure:"console"`
	FileOutput    *FileOutput             `yaml:"file_output" json:"file_output" mapstructure:"file_output"`
	ModuleOutputs map[string]ModuleOutput `yaml:"modules" json:"modules" mapstructure:"modules"`
	ModuleLevels  map[string]string       `yaml:"module_levels" json:"module_levels" mapstructure:"module_levels"`
}

// ConsoleOutput represents console logging configuration (text format, no timestamps).
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration (JSON format).
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// ModuleOutput routes one module to its own file.
type ModuleOutput struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	FilePath    string `yaml:"file_path" json:"file_path" mapstructure:"file_path"`
	Level       string `yaml:"level" json:"level" mapstructure:"level"`
	ConsoleAlso bool   `yaml:"console_also" json:"console_also" mapstructure:"console_also"`
}

// Default values for logging configuration, mirrored in conf/defaults.go.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/lyricgraph.log"
	DefaultLLMLogPath     = "logs/llm.log"
	DefaultAccessLogPath  = "logs/access.log"
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = false
)

func ensureModuleOutput(cfg *LoggingConfig, module, filePath string) {
	if _, exists := cfg.ModuleOutputs[module]; !exists {
		cfg.ModuleOutputs[module] = ModuleOutput{
			Enabled:  true,
			FilePath: filePath,
			Level:    DefaultLogLevel,
		}
	}
}

// applyConfigDefaults fills nil sections so a partial config never silences logging.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled: DefaultFileEnabled,
			Path:    DefaultLogPath,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.ModuleOutputs == nil {
		cfg.ModuleOutputs = make(map[string]ModuleOutput)
	}

	// Provider traffic and HTTP access are split out only when file logging is on.
	if cfg.FileOutput.Enabled {
		ensureModuleOutput(cfg, "llm", DefaultLLMLogPath)
		ensureModuleOutput(cfg, "api", DefaultAccessLogPath)
	}
}
