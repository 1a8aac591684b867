package lyrics

import "github.com/tphakala/lyricgraph/internal/logger"

// GetLogger returns the lyrics module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("lyrics")
}
