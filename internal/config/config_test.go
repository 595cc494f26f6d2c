package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomap/internal/cluster"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEOMAP_DB", "LOG_FILE", "GEOMAP_EPSILON", "GEOMAP_CIRCLE_RADIUS",
		"GEOMAP_SPIRAL_START", "GEOMAP_SPIRAL_INCREMENT", "GEOMAP_CIRCLE_SWITCHOVER",
		"GEOMAP_AUTOLOAD",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "data/geomap.db", cfg.DBPath)
	assert.Equal(t, "geomap.log", cfg.LogFile)
	assert.False(t, cfg.Autoload)
	assert.Equal(t, cluster.DefaultConfig(), cfg.Grouping)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEOMAP_DB", "/tmp/x.db")
	t.Setenv("GEOMAP_EPSILON", "0.001")
	t.Setenv("GEOMAP_CIRCLE_RADIUS", "50")
	t.Setenv("GEOMAP_CIRCLE_SWITCHOVER", "6")
	t.Setenv("GEOMAP_AUTOLOAD", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.InDelta(t, 0.001, cfg.Grouping.Epsilon, 1e-12)
	assert.InDelta(t, 50, cfg.Grouping.Layout.CircleRadius, 1e-12)
	assert.Equal(t, 6, cfg.Grouping.Layout.CircleSwitchover)
	assert.True(t, cfg.Autoload)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("GEOMAP_SPIRAL_START")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GEOMAP_SPIRAL_START=25\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GEOMAP_SPIRAL_START") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 25, cfg.Grouping.Layout.SpiralStartRadius, 1e-12)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"not a number", "GEOMAP_EPSILON", "abc"},
		{"zero epsilon", "GEOMAP_EPSILON", "0"},
		{"negative radius", "GEOMAP_CIRCLE_RADIUS", "-1"},
		{"bad switchover", "GEOMAP_CIRCLE_SWITCHOVER", "many"},
		{"zero switchover", "GEOMAP_CIRCLE_SWITCHOVER", "0"},
		{"bad bool", "GEOMAP_AUTOLOAD", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
