package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
  development: true
registry:
  max_entries: 8
wasm:
  module_name: host
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, 8, cfg.Registry.MaxEntries)
	assert.Equal(t, "host", cfg.Wasm.ModuleName)
	assert.Equal(t, uint32(1<<20), cfg.Wasm.MaxRequestSize, "unset fields keep defaults")
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":          "log: [",
		"bad level":         "log:\n  level: loud\n",
		"negative entries":  "registry:\n  max_entries: -1\n",
		"empty module name": "wasm:\n  module_name: \"\"\n",
		"zero request size": "wasm:\n  max_request_size: 0\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogConfig_Logger(t *testing.T) {
	l, err := LogConfig{Level: "debug", Development: true}.Logger()
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	l, err = LogConfig{Level: "error"}.Logger()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(0))

	_, err = LogConfig{Level: "loud"}.Logger()
	assert.Error(t, err)
}
