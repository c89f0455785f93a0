package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParticipantID(t *testing.T) {
	for _, id := range []string{"P0042", "a", "subject_7-b", strings.Repeat("x", MaxParticipantIDLength)} {
		assert.NoErrorf(t, ValidateParticipantID(id), "id %q", id)
	}
	for _, id := range []string{"", "a,b", "with space", "new\nline", "é", strings.Repeat("x", MaxParticipantIDLength+1)} {
		assert.ErrorIsf(t, ValidateParticipantID(id), ErrInvalidParticipantID, "id %q", id)
	}
}

func TestShortIDs(t *testing.T) {
	pattern := regexp.MustCompile(`^P\d{4}$`)
	g := NewShortIDs(1)
	for i := 0; i < 50; i++ {
		id := g.NewID()
		assert.Regexp(t, pattern, id)
		assert.NoError(t, ValidateParticipantID(id))
	}

	a, b := NewShortIDs(9), NewShortIDs(9)
	assert.Equal(t, a.NewID(), b.NewID())
}

func TestShortIDsNeverRepeat(t *testing.T) {
	g := NewShortIDs(3)
	seen := make(map[string]bool, shortIDSpace)
	for i := 0; i < shortIDSpace; i++ {
		id := g.NewID()
		require.Falsef(t, seen[id], "id %s issued twice", id)
		seen[id] = true
	}

	// The short space is exhausted; the generator keeps going with UUIDs.
	_, err := uuid.Parse(g.NewID())
	assert.NoError(t, err)
}

func TestUUIDIDs(t *testing.T) {
	id := UUIDIDs{}.NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NoError(t, ValidateParticipantID(id))
}

func TestNewIDGenerator(t *testing.T) {
	g, err := NewIDGenerator("uuid")
	require.NoError(t, err)
	assert.IsType(t, UUIDIDs{}, g)

	g, err = NewIDGenerator("short")
	require.NoError(t, err)
	assert.IsType(t, &ShortIDs{}, g)

	_, err = NewIDGenerator("snowflake")
	assert.Error(t, err)
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}

func TestSessionSecret(t *testing.T) {
	s, err := SessionSecret("configured")
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), s)

	s, err = SessionSecret("")
	require.NoError(t, err)
	assert.Len(t, s, 32)
}
