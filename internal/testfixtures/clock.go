package testfixtures

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a manually driven time source. Services receive its NowFunc so a
// test can walk across school days and token lifetimes deterministically.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = referenceTime
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvanceDays moves the clock by whole calendar days, keeping the wall time.
func (c *Clock) AdvanceDays(days int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
	return c.now
}

// Today formats the current date as YYYY-MM-DD in loc. A nil loc means UTC.
func (c *Clock) Today(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return c.Now().In(loc).Format(time.DateOnly)
}

// IDGenerator hands out "<prefix>-<n>" identifiers starting at 1.
type IDGenerator struct {
	prefix string
	seq    atomic.Uint64
}

// NewIDGenerator uses "id" when prefix is blank.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.seq.Add(1), 10)
}

// NextFunc adapts the generator to the func() string hooks of the services.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
