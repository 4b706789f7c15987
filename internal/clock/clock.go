// Package clock provides time sources and the quota calendar.
//
// Quota days are calendar dates in a fixed business timezone (UTC+3 by
// default). The offset never shifts for daylight saving; changing it
// requires a restart, which may shorten or lengthen one quota day for
// users near the boundary.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current time. Services take a Clock so tests can
// pin or advance it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now.
func System() Clock { return systemClock{} }

// Fake is a settable Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake pinned to the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set pins the fake to the given instant.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the fake forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Calendar computes quota-day boundaries in the business timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar builds a Calendar for a fixed UTC offset in hours.
func NewCalendar(utcOffsetHours int) Calendar {
	name := fmt.Sprintf("UTC%+d", utcOffsetHours)
	return Calendar{loc: time.FixedZone(name, utcOffsetHours*3600)}
}

// Location returns the business timezone.
func (c Calendar) Location() *time.Location {
	return c.loc
}

// DayStart returns local midnight of t's calendar date.
func (c Calendar) DayStart(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// DayKey returns the canonical quota-day key (YYYY-MM-DD) for t.
// Two instants share a key exactly when they fall on the same local
// calendar date.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// NextReset returns the next local midnight strictly after t.
func (c Calendar) NextReset(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, c.loc)
}

// UntilReset returns the time remaining until the quota day rolls over.
// This is the retry hint attached to quota denials.
func (c Calendar) UntilReset(t time.Time) time.Duration {
	return c.NextReset(t).Sub(t)
}
