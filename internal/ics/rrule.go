package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// ErrNotExpressible marks rules whose day clamping has no RRULE equivalent,
// e.g. a monthly rule anchored on the 31st.
var ErrNotExpressible = errors.New("ics: rule has no exact RRULE form")

var weekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RRule renders rule, anchored at anchor, as an RFC 5545 RRULE value (without
// the "RRULE:" prefix).
func RRule(rule model.RecurrenceRule, anchor time.Time) (string, error) {
	opt, err := ruleOption(rule, anchor)
	if err != nil {
		return "", err
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("ics: build rrule: %w", err)
	}
	return opt.RRuleString(), nil
}

func ruleOption(rule model.RecurrenceRule, anchor time.Time) (rrule.ROption, error) {
	if err := rule.Validate(); err != nil {
		return rrule.ROption{}, err
	}
	opt := rrule.ROption{
		Interval: rule.Interval,
		Dtstart:  anchor,
		Wkst:     rrule.SU,
	}
	switch rule.Pattern {
	case model.PatternDaily:
		opt.Freq = rrule.DAILY
	case model.PatternWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range rule.DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, weekdays[d])
		}
	case model.PatternMonthly:
		opt.Freq = rrule.MONTHLY
		if len(rule.DaysOfMonth) == 0 && anchor.Day() > 28 {
			return rrule.ROption{}, fmt.Errorf("%w: monthly on day %d", ErrNotExpressible, anchor.Day())
		}
		opt.Bymonthday = append(opt.Bymonthday, rule.DaysOfMonth...)
	case model.PatternYearly:
		opt.Freq = rrule.YEARLY
		if anchor.Day() > 28 {
			return rrule.ROption{}, fmt.Errorf("%w: yearly on day %d", ErrNotExpressible, anchor.Day())
		}
		for _, m := range rule.MonthsOfYear {
			opt.Bymonth = append(opt.Bymonth, int(m))
		}
	default:
		return rrule.ROption{}, fmt.Errorf("%w: %q", model.ErrInvalidPattern, rule.Pattern)
	}
	if rule.EndDate != nil {
		y, m, d := rule.EndDate.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, anchor.Location())
	}
	return opt, nil
}
