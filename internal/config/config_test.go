package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Capture.Quality)
	assert.Equal(t, "0.0.0.0:8554", cfg.RTSP.ListenAddr)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[capture]
device = "/dev/video0"
width = 1280
height = 720

[rtsp]
listen_addr = "127.0.0.1:9554"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/video0", cfg.Capture.Device)
	assert.Equal(t, 1280, cfg.Capture.Width)

	// toml.DecodeFile only overwrites keys it finds, so keys a present
	// [capture] table omits and whole tables the file omits both keep
	// their pre-decode defaults.
	assert.Equal(t, 75, cfg.Capture.Quality, "quality default should survive a partial [capture] table")
	assert.Equal(t, "127.0.0.1:9554", cfg.RTSP.ListenAddr)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.ListenAddr, "HTTP default should survive an absent [http] table")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := defaults()
	cfg.Capture.Device = "/dev/video1"
	path := filepath.Join(t.TempDir(), "out.toml")

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/video1", loaded.Capture.Device)
}
