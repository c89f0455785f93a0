package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fitts-go/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "config.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Server.Port)
	assert.Equal(t, "logs", cfg.Logging.Directory)
	assert.Equal(t, 10, cfg.Logging.MaxSize)
	assert.Equal(t, time.Second, cfg.Experiment.FeedbackDelay)
	assert.Equal(t, "short", cfg.Experiment.ParticipantIDs)

	d := cfg.Experiment.Design
	assert.Equal(t, "standard", d.Name)
	assert.Equal(t, []float64{30, 60, 90}, d.Sizes)
	assert.Equal(t, []float64{100, 200, 300}, d.Distances)
	assert.Equal(t, []models.Direction{models.DirectionLeft, models.DirectionRight}, d.Directions)
	assert.Equal(t, 10, d.Repetitions)
}

func TestLoadFile(t *testing.T) {
	root := writeConfig(t, `
server:
  port: "8081"
experiment:
  feedback_delay: 750ms
  export_dir: /tmp/out
  participant_ids: uuid
  design:
    name: pilot
    sizes: [20, 40]
    distances: [150]
    directions: [right]
    repetitions: 2
`)

	cfg, _, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Experiment.FeedbackDelay)
	assert.Equal(t, "/tmp/out", cfg.Experiment.ExportDir)
	assert.Equal(t, "uuid", cfg.Experiment.ParticipantIDs)
	assert.Equal(t, "pilot", cfg.Experiment.Design.Name)
	assert.Equal(t, []float64{20, 40}, cfg.Experiment.Design.Sizes)
	assert.Equal(t, []models.Direction{models.DirectionRight}, cfg.Experiment.Design.Directions)
	assert.Equal(t, 2, cfg.Experiment.Design.Repetitions)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FITTS_SERVER_PORT", "9999")
	t.Setenv("FITTS_EXPERIMENT_EXPORT_DIR", "elsewhere")

	cfg, _, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "elsewhere", cfg.Experiment.ExportDir)
}

func TestLoadRejectsBadDirection(t *testing.T) {
	root := writeConfig(t, `
experiment:
  design:
    directions: [up]
`)
	_, _, err := Load(root)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	root := writeConfig(t, "server: [unclosed")
	_, _, err := Load(root)
	assert.Error(t, err)
}

func TestLoadNormalizesDirectionCase(t *testing.T) {
	root := writeConfig(t, `
experiment:
  design:
    directions: [LEFT, " Right"]
`)
	cfg, _, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, []models.Direction{models.DirectionLeft, models.DirectionRight}, cfg.Experiment.Design.Directions)
}

func TestInitSetsActiveConfig(t *testing.T) {
	root := writeConfig(t, "server:\n  port: \"7070\"\n")
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init(root, zap.NewNop()))
	require.NotNil(t, Get())
	assert.Equal(t, "7070", Get().Server.Port)
}

func TestReloadWhileReading(t *testing.T) {
	root := writeConfig(t, "experiment:\n  feedback_delay: 1s\n")
	prev := Get()
	t.Cleanup(func() { Set(prev) })
	require.NoError(t, Init(root, zap.NewNop()))

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				_ = Get().Experiment.FeedbackDelay
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	path := filepath.Join(root, "config", "config.yaml")
	for i := 1; i <= 5; i++ {
		body := fmt.Sprintf("experiment:\n  feedback_delay: %dms\n", i*100)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return Get().Experiment.FeedbackDelay == 500*time.Millisecond
	}, 5*time.Second, 20*time.Millisecond)
}
