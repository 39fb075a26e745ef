// pkg/paths/paths_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Environment variables
// PURPOSE: Directory resolution honors explicit flags, DECLARIX_* and XDG

package paths

import (
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		configFile string
		envSetup   map[string]string
		validate   func(t *testing.T, p Paths)
	}{
		{
			name: "xdg defaults",
			envSetup: map[string]string{
				"XDG_CONFIG_HOME": "/xdg/config",
				"XDG_DATA_HOME":   "/xdg/data",
				"XDG_STATE_HOME":  "/xdg/state",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/xdg/config/declarix/declarix.toml", p.ConfigFile())
				assert.Equal(t, "/xdg/data/declarix/declarix.db", p.StorePath("sqlite"))
				assert.Equal(t, "/xdg/data/declarix/declarix.bolt", p.StorePath("bolt"))
				assert.Equal(t, "/xdg/state/declarix/declarix.log", p.LogFilePath())
			},
		},
		{
			name: "declarix overrides",
			envSetup: map[string]string{
				EnvConfigDir: "/custom/config",
				EnvDataDir:   "/custom/data",
				EnvStateDir:  "/custom/state",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/custom/config", p.ConfigDir())
				assert.Equal(t, "/custom/data", p.DataDir())
				assert.Equal(t, "/custom/state", p.StateDir())
				assert.Equal(t, "/custom/config/declarix.toml", p.ConfigFile())
			},
		},
		{
			name:     "config file from env",
			envSetup: map[string]string{EnvConfigFile: "/srv/declarix.yaml"},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/srv/declarix.yaml", p.ConfigFile())
			},
		},
		{
			name:       "explicit config file wins and expands tilde",
			configFile: "~/declarix.toml",
			envSetup:   map[string]string{EnvConfigFile: "/srv/declarix.yaml", EnvHome: "/home/tester"},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, filepath.Join(p.Home(), "declarix.toml"), p.ConfigFile())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range []string{EnvConfigFile, EnvConfigDir, EnvDataDir, EnvStateDir} {
				t.Setenv(name, "")
			}
			for k, v := range tt.envSetup {
				t.Setenv(k, v)
			}
			xdg.Reload()

			p, err := New(tt.configFile)
			require.NoError(t, err)
			tt.validate(t, p)
		})
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"~", "/home/u"},
		{"~/dots", "/home/u/dots"},
		{"~other/dots", "~other/dots"},
		{"/abs", "/abs"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandHome(tt.in, "/home/u"), tt.in)
	}
}
