package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Clock is the time source used by exam sessions and the session registry.
type Clock = bclock.Clock

// Timer is a scheduled task returned by Clock.AfterFunc.
type Timer = bclock.Timer

// Mock is a manually driven Clock.
type Mock = bclock.Mock

// Real returns a Clock backed by the time package.
func Real() Clock {
	return bclock.New()
}

// NewMock returns a Mock positioned at start.
func NewMock(start time.Time) *Mock {
	m := bclock.NewMock()
	m.Set(start)
	return m
}

// Settle fires timers that are due at the mock's current time until cond
// holds or timeout passes, and reports whether cond held.
//
// Mock timer callbacks run on their own goroutines, so a callback that re-arms
// itself late can leave a timer due at or before Now. Settle picks those up.
func Settle(m *Mock, timeout time.Duration, cond func() bool) bool {
	limit := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(limit) {
			return false
		}
		m.Add(0)
	}
	return true
}
