package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Info("ignored")
	log.Warn("snapshot_persist_failed", "id", "snap_1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "snapshot_persist_failed", rec["msg"])
	assert.Equal(t, "snap_1", rec["id"])
}

func TestSetupTextDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("hidden")
	log.Info("shown", "n", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown n=3")
}

func TestOpenFile(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	path := filepath.Join(t.TempDir(), "logs", "geomap.log")
	log, closer, err := OpenFile(path)
	require.NoError(t, err)
	log.Info("started")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=started")
}
