package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogue(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "designs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCatalogue(t *testing.T) {
	path := writeCatalogue(t, `
designs:
  - name: standard
    sizes: [30, 60, 90]
    distances: [100, 200, 300]
    directions: [LEFT, right]
    repetitions: 10
  - name: wide
    sizes: [16, 32, 64]
    distances: [160, 320, 480]
    directions: [left, right]
    repetitions: 10
`)

	catalogue, err := LoadCatalogue(path)
	require.NoError(t, err)
	require.Len(t, catalogue.Designs, 2)

	d, ok := catalogue.Find("standard")
	require.True(t, ok)
	assert.Equal(t, []float64{30, 60, 90}, d.Sizes)
	assert.Equal(t, []Direction{DirectionLeft, DirectionRight}, d.Directions)
	assert.Equal(t, 180, d.TrialCount())

	_, ok = catalogue.Find("missing")
	assert.False(t, ok)
}

func TestLoadCatalogueRejectsUnknownDirection(t *testing.T) {
	path := writeCatalogue(t, `
designs:
  - name: bad
    sizes: [30]
    distances: [100]
    directions: [up]
    repetitions: 1
`)
	_, err := LoadCatalogue(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown direction")
}

func TestLoadCatalogueRejectsDuplicateNames(t *testing.T) {
	path := writeCatalogue(t, `
designs:
  - name: a
    sizes: [30]
    distances: [100]
    directions: [left]
    repetitions: 1
  - name: a
    sizes: [60]
    distances: [100]
    directions: [left]
    repetitions: 1
`)
	_, err := LoadCatalogue(path)
	require.Error(t, err)
}

func TestLoadCatalogueMissingFile(t *testing.T) {
	_, err := LoadCatalogue(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDirectionSign(t *testing.T) {
	assert.Equal(t, -1.0, DirectionLeft.Sign())
	assert.Equal(t, 1.0, DirectionRight.Sign())
	assert.False(t, Direction("up").Valid())
}

func TestParseDirection(t *testing.T) {
	for raw, want := range map[string]Direction{"left": DirectionLeft, "LEFT": DirectionLeft, " Right ": DirectionRight} {
		got, err := ParseDirection(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDirection("up")
	assert.Error(t, err)
}
