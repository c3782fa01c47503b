package host

import (
	"sync/atomic"
	"time"
)

// SystemClock reports wall-clock milliseconds and never goes backwards,
// even if the system clock is stepped.
type SystemClock struct {
	now  func() time.Time
	last atomic.Uint64
}

// NewSystemClock creates a clock reading time.Now
func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

func (c *SystemClock) Now() uint64 {
	ms := uint64(c.now().UnixMilli())
	for {
		last := c.last.Load()
		if ms <= last {
			return last
		}
		if c.last.CompareAndSwap(last, ms) {
			return ms
		}
	}
}
