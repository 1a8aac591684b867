// Package buildinfo contains build-time metadata kept apart from user configuration.
package buildinfo

import "github.com/tphakala/lyricgraph/internal/conf"

// UnknownValue is reported for metadata missing from the build.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// It is injected at startup through linker flags.
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version string.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Apply copies the metadata onto the runtime fields of settings.
func (c *Context) Apply(settings *conf.Settings) {
	settings.Version = c.Version()
	settings.BuildDate = c.BuildDate()
}
