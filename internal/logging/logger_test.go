package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitts-go/internal/config"
)

func testConfig(dir, level string) config.LoggingConfig {
	return config.LoggingConfig{Directory: dir, Level: level, MaxSize: 1, MaxBackups: 1, MaxAge: 1}
}

func TestInitSplitsLevelsIntoFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := Init(testConfig(dir, "debug"))
	require.NoError(t, err)

	log.Info("session started")
	log.Error("export failed")
	_ = log.Sync()

	info, err := filepath.Glob(filepath.Join(dir, "*-info.log"))
	require.NoError(t, err)
	require.Len(t, info, 1)
	data, err := os.ReadFile(info[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.NotContains(t, string(data), "export failed")

	errs, err := filepath.Glob(filepath.Join(dir, "*-error.log"))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	data, err = os.ReadFile(errs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "export failed")
}

func TestInitRespectsMinimumLevel(t *testing.T) {
	dir := t.TempDir()
	log, err := Init(testConfig(dir, "warn"))
	require.NoError(t, err)

	log.Debug("noise")
	log.Info("noise")
	log.Warn("careful")
	_ = log.Sync()

	debug, _ := filepath.Glob(filepath.Join(dir, "*-debug.log"))
	info, _ := filepath.Glob(filepath.Join(dir, "*-info.log"))
	warn, _ := filepath.Glob(filepath.Join(dir, "*-warn.log"))
	assert.Empty(t, debug)
	assert.Empty(t, info)
	assert.Len(t, warn, 1)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	_, err := Init(testConfig(t.TempDir(), "chatty"))
	assert.Error(t, err)
}
