package history

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces snapshot identifiers.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Clock supplies snapshot timestamps.
// Implemented by SystemClock (production) and testutil.StepClock (tests).
type Clock interface {
	Now() time.Time
}

// UUIDv7Generator generates time-sortable UUIDv7 snapshot ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time even after a history is persisted and reloaded.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
