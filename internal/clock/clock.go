package clock

import "time"

// Clock abstracts wall-clock time so scheduled jobs can be tested
// without waiting on real timers.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// New returns a Clock backed by time.Now
func New() Clock { return realClock{} }
