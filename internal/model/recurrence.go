package model

import (
	"errors"
	"fmt"
	"time"
)

type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
	PatternYearly  Pattern = "yearly"
)

func (p Pattern) IsValid() bool {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternYearly:
		return true
	default:
		return false
	}
}

// MaxInterval bounds RecurrenceRule.Interval so period arithmetic stays
// inside the representable calendar.
const MaxInterval = 1000

var (
	ErrInvalidPattern    = errors.New("model: invalid recurrence pattern")
	ErrInvalidInterval   = errors.New("model: invalid recurrence interval")
	ErrInvalidDayOfWeek  = errors.New("model: invalid recurrence weekday")
	ErrInvalidDayOfMonth = errors.New("model: invalid recurrence day of month")
	ErrInvalidMonth      = errors.New("model: invalid recurrence month")
)

// RecurrenceRule describes how a template repeats. DaysOfWeek only applies to
// weekly rules, DaysOfMonth to monthly rules and MonthsOfYear to yearly rules.
// EndDate is an inclusive calendar-day cutoff.
type RecurrenceRule struct {
	Pattern      Pattern
	Interval     int
	DaysOfWeek   []time.Weekday
	DaysOfMonth  []int
	MonthsOfYear []time.Month
	EndDate      *time.Time
}

func (r RecurrenceRule) Validate() error {
	if !r.Pattern.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, r.Pattern)
	}
	if r.Interval <= 0 || r.Interval > MaxInterval {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidInterval, r.Interval, MaxInterval)
	}
	seenDow := make(map[time.Weekday]bool, len(r.DaysOfWeek))
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: %d", ErrInvalidDayOfWeek, int(d))
		}
		if seenDow[d] {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidDayOfWeek, d)
		}
		seenDow[d] = true
	}
	seenDom := make(map[int]bool, len(r.DaysOfMonth))
	for _, d := range r.DaysOfMonth {
		if d < 1 || d > 31 {
			return fmt.Errorf("%w: %d", ErrInvalidDayOfMonth, d)
		}
		if seenDom[d] {
			return fmt.Errorf("%w: duplicate %d", ErrInvalidDayOfMonth, d)
		}
		seenDom[d] = true
	}
	seenMonth := make(map[time.Month]bool, len(r.MonthsOfYear))
	for _, m := range r.MonthsOfYear {
		if m < time.January || m > time.December {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, int(m))
		}
		if seenMonth[m] {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidMonth, m)
		}
		seenMonth[m] = true
	}
	return nil
}

func (r RecurrenceRule) Clone() RecurrenceRule {
	out := r
	if r.DaysOfWeek != nil {
		out.DaysOfWeek = append([]time.Weekday(nil), r.DaysOfWeek...)
	}
	if r.DaysOfMonth != nil {
		out.DaysOfMonth = append([]int(nil), r.DaysOfMonth...)
	}
	if r.MonthsOfYear != nil {
		out.MonthsOfYear = append([]time.Month(nil), r.MonthsOfYear...)
	}
	if r.EndDate != nil {
		end := *r.EndDate
		out.EndDate = &end
	}
	return out
}
