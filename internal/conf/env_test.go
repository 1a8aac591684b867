package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"true", "true", false},
		{"false", "false", false},
		{"1", "1", false},
		{"0", "0", false},
		{"TRUE", "TRUE", false},
		{"invalid", "maybe", true},
		{"yes", "yes", true}, // strconv.ParseBool doesn't accept yes/no
		{"empty", "", true},
		{"true with spaces", " true ", false},
		{"false with newline", "false\n", false},
		{"decimal 1.0", "1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateEnvBool(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid boolean value")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", "8080", false},
		{"lowest", "1", false},
		{"highest", "65535", false},
		{"zero", "0", true},
		{"too high", "65536", true},
		{"not a number", "http", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateEnvPort(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvURL(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvURL("http://localhost:11434"))
	assert.NoError(t, validateEnvURL("https://ollama.example.com"))
	assert.Error(t, validateEnvURL("localhost:11434"))
	assert.Error(t, validateEnvURL("ftp://example.com"))
	assert.Error(t, validateEnvURL("http://"))
}

func TestValidateEnvEnums(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBackend("sqlite"))
	assert.NoError(t, validateEnvBackend("mysql"))
	assert.Error(t, validateEnvBackend("neo4j"))

	assert.NoError(t, validateEnvEmbeddingProvider("hashing"))
	assert.NoError(t, validateEnvEmbeddingProvider("gemini"))
	assert.Error(t, validateEnvEmbeddingProvider("openai"))

	assert.NoError(t, validateEnvLogLevel("DEBUG"))
	assert.Error(t, validateEnvLogLevel("verbose"))

	assert.NoError(t, validateEnvDuration("10s"))
	assert.Error(t, validateEnvDuration("-1s"))
	assert.Error(t, validateEnvDuration("soon"))
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("LYRICGRAPH_PORT", "not-a-port")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LYRICGRAPH_PORT")
}

func TestApplyEnvSecrets(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("GEMINI_API_KEY", "real-key")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	require.NoError(t, bindEnvVars())

	settings := &Settings{
		LLM: LLMSettings{
			Providers: []ProviderConfig{
				{Name: "gemini", Type: ProviderGemini, APIKey: "your_gemini_api_key"},
				{Name: "ollama", Type: ProviderOllama, BaseURL: "http://localhost:11434"},
			},
		},
	}
	require.NoError(t, applyEnvSecrets(settings))

	assert.Equal(t, "real-key", settings.LLM.Providers[0].APIKey)
	assert.Equal(t, "http://gpu-box:11434", settings.LLM.Providers[1].BaseURL)
	assert.Equal(t, "real-key", settings.Embedding.APIKey)
}

func TestApplyEnvSecretsKeepsConfiguredKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("GEMINI_API_KEY", "env-key")
	require.NoError(t, bindEnvVars())

	settings := &Settings{
		LLM: LLMSettings{
			Providers: []ProviderConfig{{Name: "gemini", Type: ProviderGemini, APIKey: "file-key"}},
		},
	}
	require.NoError(t, applyEnvSecrets(settings))

	assert.Equal(t, "file-key", settings.LLM.Providers[0].APIKey)
}

func TestApplyEnvSecretsResolvesFilesAndReferences(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("LYRICGRAPH_TEST_DB_PASSWORD", "hunter2")
	require.NoError(t, bindEnvVars())

	dsnFile := filepath.Join(t.TempDir(), "sentry_dsn")
	require.NoError(t, os.WriteFile(dsnFile, []byte("https://key@sentry.example/1\n"), 0o600))

	settings := &Settings{}
	settings.Graph.MySQL.Password = "${LYRICGRAPH_TEST_DB_PASSWORD}"
	settings.Telemetry.DSNFile = dsnFile
	require.NoError(t, applyEnvSecrets(settings))

	assert.Equal(t, "hunter2", settings.Graph.MySQL.Password)
	assert.Equal(t, "https://key@sentry.example/1", settings.Telemetry.DSN)

	settings.Embedding.APIKey = "${LYRICGRAPH_TEST_UNSET_KEY}"
	assert.Error(t, applyEnvSecrets(settings))
}
