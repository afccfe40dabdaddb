// Package calendar answers day-boundary questions for the daily challenge:
// whether a new challenge is due, whether a streak is broken, and how long
// until the next one. All comparisons use calendar days in the configured
// location, never rolling 24 hour windows.
package calendar

import (
	"fmt"
	"time"
)

// Clock evaluates dates in a fixed location. Now is injectable for tests.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// New returns a clock for loc using the wall clock. A nil loc means time.Local.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{Location: loc, Now: time.Now}
}

// Fixed returns a clock frozen at t, in t's location
func Fixed(t time.Time) *Clock {
	return &Clock{Location: t.Location(), Now: func() time.Time { return t }}
}

func (c *Clock) now() time.Time {
	return c.Now().In(c.Location)
}

// Today is the current instant in the clock location
func (c *Clock) Today() time.Time {
	return c.now()
}

// StartOfDay truncates t to local midnight
func (c *Clock) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location)
}

// DaysBetween counts calendar days from a to b. It is negative when b is
// on an earlier day than a.
func (c *Clock) DaysBetween(a, b time.Time) int {
	ay, am, ad := a.In(c.Location).Date()
	by, bm, bd := b.In(c.Location).Date()
	// differencing UTC midnights keeps DST shifts out of the result
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// SameDay reports whether a and b share a calendar day
func (c *Clock) SameDay(a, b time.Time) bool {
	return c.DaysBetween(a, b) == 0
}

// IsToday reports whether t falls on the current calendar day
func (c *Clock) IsToday(t time.Time) bool {
	return c.SameDay(t, c.now())
}

// DayKey formats t's calendar day as YYYY-MM-DD
func (c *Clock) DayKey(t time.Time) string {
	return t.In(c.Location).Format("2006-01-02")
}

// IsEligibleForNewChallenge is true when nothing was completed yet or the
// last completion was on an earlier day
func (c *Clock) IsEligibleForNewChallenge(lastCompleted *time.Time) bool {
	if lastCompleted == nil {
		return true
	}
	return c.DaysBetween(*lastCompleted, c.now()) > 0
}

// StreakShouldBreak is true when at least one full day was missed
func (c *Clock) StreakShouldBreak(lastCompleted *time.Time) bool {
	if lastCompleted == nil {
		return false
	}
	return c.DaysBetween(*lastCompleted, c.now()) > 1
}

// HasValidStreak is true when the player played today or yesterday
func (c *Clock) HasValidStreak(lastCompleted *time.Time) bool {
	if lastCompleted == nil {
		return false
	}
	return c.DaysBetween(*lastCompleted, c.now()) <= 1
}

// StartOfTomorrow is the next local midnight
func (c *Clock) StartOfTomorrow() time.Time {
	return c.StartOfDay(c.now()).AddDate(0, 0, 1)
}

// NextChallengeAt is the countdown target shown to players, one minute
// past the next local midnight
func (c *Clock) NextChallengeAt() time.Time {
	return c.StartOfTomorrow().Add(time.Minute)
}

// TimeUntil is target-now, never negative
func TimeUntil(now, target time.Time) time.Duration {
	d := target.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// FormatCountdown renders d as HH:MM:SS
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
