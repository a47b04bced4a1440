package timeutil

import (
	"math"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is deterministic and test-friendly.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey formats the calendar day of t, e.g. "2024-03-09".
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether b falls on a's calendar day, judged in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return DayKey(a) == DayKey(b)
}

// DaysBetween is the absolute number of calendar days between a and b, measured
// midnight to midnight in a's location. Rounding absorbs 23h/25h DST days.
func DaysBetween(a, b time.Time) int {
	da := StartOfDay(a)
	db := StartOfDay(b.In(a.Location()))
	diff := math.Abs(da.Sub(db).Hours()) / 24
	return int(math.Round(diff))
}
