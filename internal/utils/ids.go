package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out participant identifiers.
type IDGenerator interface {
	NewID() string
}

// shortIDSpace is the number of distinct short identifiers.
const shortIDSpace = 10000

// ShortIDs produces identifiers of the form "P" followed by four random
// digits, e.g. "P0427", the way the lab hands them out on paper. An
// identifier is never issued twice by the same generator; once all of them
// are taken it falls back to UUIDs.
type ShortIDs struct {
	mu     sync.Mutex
	rng    *rand.Rand
	issued map[int]bool
}

// NewShortIDs seeds the generator; a zero seed uses the wall clock.
func NewShortIDs(seed int64) *ShortIDs {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ShortIDs{rng: rand.New(rand.NewSource(seed)), issued: make(map[int]bool)}
}

func (g *ShortIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.issued) >= shortIDSpace {
		return uuid.NewString()
	}
	n := g.rng.Intn(shortIDSpace)
	for g.issued[n] {
		n = (n + 1) % shortIDSpace
	}
	g.issued[n] = true
	return fmt.Sprintf("P%04d", n)
}

// UUIDIDs produces random version 4 UUIDs.
type UUIDIDs struct{}

func (UUIDIDs) NewID() string {
	return uuid.NewString()
}

// NewIDGenerator returns the generator for a configured kind, "short"
// or "uuid".
func NewIDGenerator(kind string) (IDGenerator, error) {
	switch kind {
	case "", "short":
		return NewShortIDs(0), nil
	case "uuid":
		return UUIDIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown participant id generator %q", kind)
	}
}
