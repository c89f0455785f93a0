// Package export renders session results as CSV.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fitts-go/internal/models"
)

// ErrEmptyResultSet is returned when there are no records to export.
var ErrEmptyResultSet = errors.New("empty result set")

// Header is the column order of every export.
var Header = []string{
	"participant_id",
	"trial",
	"target_size",
	"distance",
	"direction",
	"movement_time_ms",
	"path_length_px",
	"error_count",
}

// FileName is the export file name for a participant.
func FileName(participantID string) string {
	return fmt.Sprintf("fitts_law_%s.csv", participantID)
}

// Write renders records, in the order given, as a header line followed by
// one line per record. Every line ends with a newline.
func Write(w io.Writer, records []models.TrialRecord) error {
	if len(records) == 0 {
		return ErrEmptyResultSet
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := bw.WriteString(strings.Join(row(r), ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the export for participantID into dir and returns the
// path of the file. An existing export is never overwritten: a repeated
// participant id gets fitts_law_<id>_2.csv, fitts_law_<id>_3.csv and so on.
func WriteFile(dir, participantID string, records []models.TrialRecord) (string, error) {
	if len(records) == 0 {
		return "", ErrEmptyResultSet
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create export directory: %w", err)
	}

	path, f, err := createUnique(dir, participantID)
	if err != nil {
		return "", fmt.Errorf("could not create export file: %w", err)
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return "", fmt.Errorf("could not write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("could not close export file: %w", err)
	}
	return path, nil
}

func createUnique(dir, participantID string) (string, *os.File, error) {
	name := FileName(participantID)
	for n := 2; ; n++ {
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, err
		}
		name = FileName(fmt.Sprintf("%s_%d", participantID, n))
	}
}

func row(r models.TrialRecord) []string {
	return []string{
		r.ParticipantID,
		strconv.Itoa(r.TrialIndex),
		formatFloat(r.TargetSize),
		formatFloat(r.Distance),
		string(r.Direction),
		strconv.FormatInt(r.MovementTimeMs, 10),
		formatFloat(r.PathLengthPx),
		strconv.Itoa(r.ErrorCount),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
