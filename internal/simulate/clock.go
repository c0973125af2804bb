package simulate

import (
	"sync/atomic"
	"time"
)

// Clock replays operation timestamps into the engine so deadline
// checks and event timestamps are deterministic.
type Clock struct {
	ts atomic.Int64
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Set(ts uint64) {
	c.ts.Store(int64(ts))
}

func (c *Clock) Now() time.Time {
	return time.Unix(c.ts.Load(), 0).UTC()
}
