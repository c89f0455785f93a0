package utils

import (
	"errors"
	"fmt"
	"unicode"
)

// MaxParticipantIDLength bounds participant identifiers.
const MaxParticipantIDLength = 64

// ErrInvalidParticipantID is returned for identifiers that are empty, too
// long, or contain characters other than letters, digits, '-' and '_'.
var ErrInvalidParticipantID = errors.New("invalid participant id")

// ValidateParticipantID checks that id is safe to use in export rows and
// file names.
func ValidateParticipantID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidParticipantID)
	}
	if len(id) > MaxParticipantIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidParticipantID, MaxParticipantIDLength)
	}
	for _, char := range id {
		switch {
		case char > unicode.MaxASCII:
			return fmt.Errorf("%w: non-ASCII character %q", ErrInvalidParticipantID, char)
		case unicode.IsLetter(char), unicode.IsDigit(char), char == '-', char == '_':
		default:
			return fmt.Errorf("%w: character %q not allowed", ErrInvalidParticipantID, char)
		}
	}
	return nil
}
