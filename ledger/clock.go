package ledger

import "time"

// =============================================================================
// CLOCK - Transaction timestamp source
// =============================================================================

// Clock supplies timestamps so engines are deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// LocalDate formats an instant as the local-date key used by daily
// paid-spin counters. Rollover happens when the formatted date changes.
func LocalDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}
