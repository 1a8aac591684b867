package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/lyricgraph/internal/conf"
)

func TestContext_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{"nil context", nil, UnknownValue},
		{"empty version", NewContext("", "2026-01-01"), UnknownValue},
		{"valid version", NewContext("1.0.0", "2026-01-01"), "1.0.0"},
		{"version with pre-release tag", NewContext("1.0.0-beta.1", "2026-01-01"), "1.0.0-beta.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ctx.Version())
		})
	}
}

func TestContext_BuildDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnknownValue, (*Context)(nil).BuildDate())
	assert.Equal(t, UnknownValue, NewContext("1.0.0", "").BuildDate())
	assert.Equal(t, "2026-01-01", NewContext("1.0.0", "2026-01-01").BuildDate())
}

func TestContext_Apply(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	NewContext("v0.3.0", "").Apply(settings)
	assert.Equal(t, "v0.3.0", settings.Version)
	assert.Equal(t, UnknownValue, settings.BuildDate)
}
