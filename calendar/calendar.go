// Package calendar holds the single definition of a "day" used by reservation booking,
// capacity planning and checkout qualification.
//
// A day is the half-open window [midnight, next midnight) at a fixed UTC offset.
package calendar

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("date must have the form YYYY-MM-DD")

// Calendar computes day windows at a fixed UTC offset.
type Calendar struct {
	location *time.Location
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// UTC returns a Calendar whose days start at UTC midnight.
func UTC() Calendar {
	return Calendar{location: time.UTC}
}

// WithOffsetMinutes returns a Calendar whose days start at midnight of UTC+offset.
func WithOffsetMinutes(offsetMinutes int) Calendar {
	if offsetMinutes == 0 {
		return UTC()
	}

	return Calendar{location: time.FixedZone("", offsetMinutes*60)}
}

func (c Calendar) loc() *time.Location {
	if c.location == nil {
		return time.UTC
	}

	return c.location
}

// DayOf returns the window of the day containing t.
func (c Calendar) DayOf(t time.Time) Window {
	local := t.In(c.loc())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc())

	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDay parses a YYYY-MM-DD date into the window of that day.
func (c Calendar) ParseDay(date string) (Window, error) {
	parsed, err := time.ParseInLocation(dateLayout, date, c.loc())
	if err != nil {
		return Window{}, errors.Join(ErrInvalidDate, err)
	}

	return c.DayOf(parsed), nil
}

// Format renders the calendar date of t.
func (c Calendar) Format(t time.Time) string {
	return t.In(c.loc()).Format(dateLayout)
}

// Contains reports whether t falls within the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Key identifies the day as an int64, e.g. for advisory locks.
func (w Window) Key() int64 {
	return w.Start.Unix() / 86400
}
