package recurrence

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidWindow = errors.New("recurrence: invalid window")

// Occurrence keys carry a four-digit year.
const (
	minYear = 1
	maxYear = 9999
)

// Window is an inclusive range of calendar days. Only the date part of Start
// and End is significant.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	for _, t := range []time.Time{w.Start, w.End} {
		if y := t.Year(); y < minYear || y > maxYear {
			return fmt.Errorf("%w: year %d outside %d..%d", ErrInvalidWindow, y, minYear, maxYear)
		}
	}
	if dayOf(w.End).Before(dayOf(w.Start)) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow, w.End.Format(time.DateOnly), w.Start.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether t falls on a day inside w.
func (w Window) Contains(t time.Time) bool {
	d := dayOf(t)
	return !d.Before(dayOf(w.Start)) && !d.After(dayOf(w.End))
}

// Days returns the number of calendar days covered by w.
func (w Window) Days() int {
	return daysBetween(dayOf(w.Start), dayOf(w.End)) + 1
}

// Shift moves both ends of w by the given number of days.
func (w Window) Shift(days int) Window {
	return Window{Start: w.Start.AddDate(0, 0, days), End: w.End.AddDate(0, 0, days)}
}

// WeekOf returns the Sunday-aligned week that contains t.
func WeekOf(t time.Time) Window {
	y, m, d := t.Date()
	start := time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 6)}
}

// ParseWindow reads a window from two YYYY-MM-DD dates in loc.
func ParseWindow(from, to string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(time.DateOnly, from, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start: %v", ErrInvalidWindow, err)
	}
	end, err := time.ParseInLocation(time.DateOnly, to, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end: %v", ErrInvalidWindow, err)
	}
	w := Window{Start: start, End: end}
	return w, w.Validate()
}

// dayOf maps t to midnight UTC of its calendar date so that days from
// different locations compare by date alone.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
