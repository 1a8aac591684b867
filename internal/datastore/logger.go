package datastore

import (
	"time"

	"github.com/tphakala/lyricgraph/internal/logger"
)

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// gormLogger routes GORM statements through the central logger.
func gormLogger(slowThreshold time.Duration) *logger.GormLoggerAdapter {
	return logger.NewGormLoggerAdapter(GetLogger().Module("gorm"), slowThreshold)
}
