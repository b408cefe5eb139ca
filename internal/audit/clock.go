package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies wall-clock timestamps for audit records.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// GUIDGenerator produces run identifiers.
type GUIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run guids.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 (36 characters).
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined guids in order, for tests.
// It panics once the guids run out.
type FixedGenerator struct {
	mu    sync.Mutex
	guids []string
	idx   int
}

func NewFixedGenerator(guids ...string) *FixedGenerator {
	return &FixedGenerator{guids: guids}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.guids) {
		panic("FixedGenerator: all guids exhausted")
	}
	guid := g.guids[g.idx]
	g.idx++
	return guid
}

// StepClock is a deterministic Clock for tests: every call to Now advances
// by Step from Start.
type StepClock struct {
	mu    sync.Mutex
	Start time.Time
	Step  time.Duration
	n     int
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Start.Add(time.Duration(c.n) * c.Step)
	c.n++
	return t
}
