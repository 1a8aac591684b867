package analysis

import "github.com/tphakala/lyricgraph/internal/logger"

// GetLogger returns the analysis module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("analysis")
}
