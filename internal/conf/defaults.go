// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/lyricgraph/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "lyricgraph")
	viper.SetDefault("main.datadir", "data")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("graph.backend", BackendSQLite)
	viper.SetDefault("graph.sqlite.dir", "")
	viper.SetDefault("graph.mysql.host", "localhost")
	viper.SetDefault("graph.mysql.port", "3306")
	viper.SetDefault("graph.mysql.database", "lyricgraph")
	viper.SetDefault("graph.maxopenstores", 4)
	viper.SetDefault("graph.slowquerythreshold", 200*time.Millisecond)
	viper.SetDefault("graph.limits.phrases", 200)
	viper.SetDefault("graph.limits.phraselinks", 1)
	viper.SetDefault("graph.limits.meterpatterns", 50)
	viper.SetDefault("graph.limits.structures", 10)
	viper.SetDefault("graph.limits.rhymepairs", 100)

	viper.SetDefault("analysis.phraseminfrequency", 3)
	viper.SetDefault("analysis.meterminfrequency", 2)
	viper.SetDefault("analysis.vocabularysize", 500)
	viper.SetDefault("analysis.metaphorbatchsize", 10)
	viper.SetDefault("analysis.metaphormaxsections", 100)
	viper.SetDefault("analysis.usellmmetaphors", true)
	viper.SetDefault("analysis.clusterstrategy", ClusterGraphPartition)
	viper.SetDefault("analysis.lexiconpath", "")

	viper.SetDefault("embedding.provider", ProviderHashing)
	viper.SetDefault("embedding.model", "text-embedding-004")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.cachettl", 30*time.Minute)

	viper.SetDefault("llm.maxretries", 2)
	viper.SetDefault("llm.retrybasedelay", 10*time.Second)
	viper.SetDefault("llm.ratelimit", 1.0)
	viper.SetDefault("llm.burst", 2)
	viper.SetDefault("llm.timeout", 120*time.Second)
	viper.SetDefault("llm.maxtokens", 2000)

	viper.SetDefault("generation.maxattempts", 3)
	viper.SetDefault("generation.temperature", 0.85)
	viper.SetDefault("generation.chattemperature", 0.7)
	viper.SetDefault("generation.maxhistory", 10)

	viper.SetDefault("retrieval.stagetimeout", 30*time.Second)

	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.debug", false)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.environment", "production")
}
