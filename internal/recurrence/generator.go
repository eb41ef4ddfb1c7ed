// Package recurrence expands a recurring template into the concrete dates that
// fall inside a window of calendar days.
//
// Every pattern is modelled as a sequence of periods indexed from the anchor
// (period k is a pure function of k). Generate jumps straight to the first
// period that can reach the window and then walks the same sequence, so the
// dates produced for a day never depend on which window asked for it.
package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
)

const DefaultMaxOccurrences = 1000

var ErrMissingAnchor = errors.New("recurrence: recurring template has no scheduled date")

type Generator struct {
	// MaxOccurrences caps how many dates a single call may return. Zero or
	// negative means DefaultMaxOccurrences.
	MaxOccurrences int
}

type Result struct {
	Dates     []time.Time
	Truncated bool
}

// Generate returns the ordered occurrence dates of t inside w. Each date is a
// calendar day from the recurrence at the anchor's time of day. Window and
// EndDate bounds are compared by their calendar date as written. A template
// without a recurrence yields its own ScheduledDate when that falls in w.
func (g Generator) Generate(t model.TaskTemplate, w Window) (Result, error) {
	if err := w.Validate(); err != nil {
		return Result{}, err
	}
	if t.Recurrence == nil {
		if t.ScheduledDate.IsZero() || !w.Contains(t.ScheduledDate) {
			return Result{}, nil
		}
		return Result{Dates: []time.Time{t.ScheduledDate}}, nil
	}

	rule := *t.Recurrence
	if err := rule.Validate(); err != nil {
		return Result{}, err
	}
	anchor := t.ScheduledDate
	if anchor.IsZero() {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingAnchor, t.ID)
	}

	lo := dayOf(w.Start)
	hi := dayOf(w.End)
	if anchorDay := dayOf(anchor); lo.Before(anchorDay) {
		lo = anchorDay
	}
	if rule.EndDate != nil {
		if end := dayOf(*rule.EndDate); end.Before(hi) {
			hi = end
		}
	}
	if hi.Before(lo) {
		return Result{}, nil
	}

	limit := g.MaxOccurrences
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}

	var res Result
	for at := range walk(rule, anchor, firstPeriod(rule, anchor, lo), hi) {
		day := dayOf(at)
		if day.Before(lo) {
			continue
		}
		if day.After(hi) {
			break
		}
		if len(res.Dates) == limit {
			res.Truncated = true
			break
		}
		res.Dates = append(res.Dates, at)
	}
	return res, nil
}

// Matches reports whether day is one of t's occurrence days.
func (g Generator) Matches(t model.TaskTemplate, day time.Time) bool {
	res, err := g.Generate(t, Window{Start: day, End: day})
	if err != nil || len(res.Dates) == 0 {
		return false
	}
	return true
}

// Sequence yields every candidate date of rule from the anchor onwards, in
// order, stopping after the last period that starts on or before until (or
// the rule's EndDate when earlier). Candidates before the anchor day are
// skipped.
func Sequence(rule model.RecurrenceRule, anchor, until time.Time) iter.Seq[time.Time] {
	last := dayOf(until)
	if rule.EndDate != nil {
		if end := dayOf(*rule.EndDate); end.Before(last) {
			last = end
		}
	}
	anchorDay := dayOf(anchor)
	return func(yield func(time.Time) bool) {
		for at := range walk(rule, anchor, 0, last) {
			day := dayOf(at)
			if day.Before(anchorDay) {
				continue
			}
			if day.After(last) {
				return
			}
			if !yield(at) {
				return
			}
		}
	}
}

// walk yields the candidates of periods from, from+1, ... until a period
// starts after last. Periods with no valid day (e.g. the 31st in a short
// month) yield nothing but still advance. Period starts must strictly
// increase; arithmetic that wraps around ends the walk.
func walk(rule model.RecurrenceRule, anchor time.Time, from int, last time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		var prev time.Time
		for k := from; ; k++ {
			start, days := period(rule, anchor, k)
			if start.After(last) || (k > from && !start.After(prev)) {
				return
			}
			prev = start
			for _, d := range days {
				if !yield(AtAnchorClock(d, anchor)) {
					return
				}
			}
		}
	}
}

// period returns the first day of period k and its candidate days in
// ascending order. All values are midnight UTC calendar days.
func period(rule model.RecurrenceRule, anchor time.Time, k int) (time.Time, []time.Time) {
	anchorDay := dayOf(anchor)
	switch rule.Pattern {
	case model.PatternDaily:
		d := anchorDay.AddDate(0, 0, k*rule.Interval)
		return d, []time.Time{d}
	case model.PatternWeekly:
		if len(rule.DaysOfWeek) == 0 {
			d := anchorDay.AddDate(0, 0, 7*k*rule.Interval)
			return d, []time.Time{d}
		}
		start := weekStart(anchorDay).AddDate(0, 0, 7*k*rule.Interval)
		days := make([]time.Time, 0, len(rule.DaysOfWeek))
		for _, wd := range sortedWeekdays(rule.DaysOfWeek) {
			days = append(days, start.AddDate(0, 0, int(wd)))
		}
		return start, days
	case model.PatternMonthly:
		// TODO: Interval counts every calendar month, including months where
		// DaysOfMonth matches nothing. Confirm with product whether only
		// months with a qualifying day should count (same for yearly).
		y, m := addMonths(anchorDay.Year(), anchorDay.Month(), k*rule.Interval)
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		if len(rule.DaysOfMonth) == 0 {
			return start, []time.Time{clampedDay(y, m, anchorDay.Day())}
		}
		days := make([]time.Time, 0, len(rule.DaysOfMonth))
		n := daysIn(y, m)
		for _, d := range sortedInts(rule.DaysOfMonth) {
			if d <= n {
				days = append(days, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
			}
		}
		return start, days
	case model.PatternYearly:
		y := anchorDay.Year() + k*rule.Interval
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		if len(rule.MonthsOfYear) == 0 {
			return start, []time.Time{clampedDay(y, anchorDay.Month(), anchorDay.Day())}
		}
		days := make([]time.Time, 0, len(rule.MonthsOfYear))
		for _, m := range sortedMonths(rule.MonthsOfYear) {
			days = append(days, clampedDay(y, m, anchorDay.Day()))
		}
		return start, days
	default:
		// Validate rejects unknown patterns before we get here.
		panic(fmt.Sprintf("recurrence: unhandled pattern %q", rule.Pattern))
	}
}

// firstPeriod returns the largest period index whose start is on or before
// lo. Every earlier period ends before lo, so skipping them changes nothing.
func firstPeriod(rule model.RecurrenceRule, anchor time.Time, lo time.Time) int {
	anchorDay := dayOf(anchor)
	var k int
	switch rule.Pattern {
	case model.PatternDaily:
		k = daysBetween(anchorDay, lo) / rule.Interval
	case model.PatternWeekly:
		base := anchorDay
		if len(rule.DaysOfWeek) > 0 {
			base = weekStart(anchorDay)
		}
		k = daysBetween(base, lo) / (7 * rule.Interval)
	case model.PatternMonthly:
		months := (lo.Year()-anchorDay.Year())*12 + int(lo.Month()) - int(anchorDay.Month())
		k = months / rule.Interval
	case model.PatternYearly:
		k = (lo.Year() - anchorDay.Year()) / rule.Interval
	}
	if k < 0 {
		return 0
	}
	return k
}

// AtAnchorClock returns the calendar date of day, as written, at anchor's time
// of day in anchor's location.
func AtAnchorClock(day time.Time, anchor time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func weekStart(day time.Time) time.Time {
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func addMonths(y int, m time.Month, n int) (int, time.Month) {
	idx := y*12 + int(m) - 1 + n
	return idx / 12, time.Month(idx%12 + 1)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampedDay(y int, m time.Month, d int) time.Time {
	if n := daysIn(y, m); d > n {
		d = n
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortedWeekdays(in []time.Weekday) []time.Weekday {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func sortedInts(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func sortedMonths(in []time.Month) []time.Month {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}
