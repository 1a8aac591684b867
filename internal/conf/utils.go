// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the default configuration paths for the current operating system.
// If a config.yaml file is found in any of the paths, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "get-executable-path").
				Build()
		}
		configPaths = []string{
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "lyricgraph"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "lyricgraph"),
			"/etc/lyricgraph",
		}
	}

	// A config.yaml in the working directory wins.
	if _, err := os.Stat("config.yaml"); err == nil {
		return []string{"."}, nil
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// GetBasePath expands environment variables in path, cleans it and creates the directory.
func GetBasePath(path string) string {
	basePath := filepath.Clean(os.ExpandEnv(path))

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o750); err != nil {
			GetLogger().Warn("failed to create directory",
				logger.String("path", basePath),
				logger.Error(err))
		}
	}

	return basePath
}
