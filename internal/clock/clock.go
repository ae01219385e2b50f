// Package clock supplies the current instant and business-day arithmetic.
// Instants are stored in UTC; the business time zone only decides where one
// day ends and the next begins.
package clock

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is used when no business time zone is configured.
const DefaultTimezone = "UTC"

// Clock returns the current instant. Inject a Fixed clock in tests.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns the current time in UTC truncated to milliseconds, the
// precision the datastore keeps.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Fixed is a settable clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed creates a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC().Truncate(time.Millisecond)}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t.UTC().Truncate(time.Millisecond)
}

// AddDays advances the clock by n whole days.
func (f *Fixed) AddDays(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.AddDate(0, 0, n)
}

// LoadLocation resolves a business time zone name, defaulting to UTC.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Date returns the civil date of t in loc, as midnight UTC of that date.
func Date(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts the business days from the date of `from` to the date
// of `to`. It is negative when `to` falls on an earlier date.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	return int(Date(to, loc).Sub(Date(from, loc)).Hours() / 24)
}

// StartOfDay returns the first instant of t's business day, in UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
}
