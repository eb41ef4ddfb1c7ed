package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
)

type windowFlags struct {
	from string
	to   string
	week int
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&w.to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&w.week, "week", 0, "weeks relative to the current one when --from/--to are not set")
}

// resolve returns the explicit range when both ends are given, otherwise the
// Sunday-aligned week offset by --week.
func (w *windowFlags) resolve(today time.Time, loc *time.Location) (recurrence.Window, error) {
	switch {
	case w.from != "" && w.to != "":
		return recurrence.ParseWindow(w.from, w.to, loc)
	case w.from != "" || w.to != "":
		return recurrence.Window{}, fmt.Errorf("--from and --to must be given together")
	}
	return recurrence.WeekOf(today).Shift(7 * w.week), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// parseWeekdays reads "mon,wed,fri" (full names and 0-6 also accepted).
func parseWeekdays(raw string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range splitList(raw) {
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, time.Weekday(n))
			continue
		}
		wd, ok := weekdayNames[strings.ToLower(part)[:min(3, len(part))]]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out = append(out, wd)
	}
	return out, nil
}

func parseMonthDays(raw string) ([]int, error) {
	var out []int
	for _, part := range splitList(raw) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("day of month %q is not a number", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseMonths reads "jan,mar" or "1,3".
func parseMonths(raw string) ([]time.Month, error) {
	var out []time.Month
	for _, part := range splitList(raw) {
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, time.Month(n))
			continue
		}
		found := false
		for m := time.January; m <= time.December; m++ {
			if strings.HasPrefix(strings.ToLower(m.String()), strings.ToLower(part)) && len(part) >= 3 {
				out = append(out, m)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown month %q", part)
		}
	}
	return out, nil
}

// parseWhen reads "YYYY-MM-DD HH:MM", "YYYY-MM-DDTHH:MM" or a bare date at
// midnight, in loc.
func parseWhen(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, want YYYY-MM-DD [HH:MM]", raw)
}

// buildRule assembles a recurrence rule from the add flags. An empty pattern
// means the task does not repeat.
func buildRule(pattern string, interval int, days, months, until string, loc *time.Location) (*model.RecurrenceRule, error) {
	if pattern == "" {
		if days != "" || months != "" || until != "" {
			return nil, fmt.Errorf("--days, --months and --until need --every")
		}
		return nil, nil
	}
	rule := &model.RecurrenceRule{Pattern: model.Pattern(strings.ToLower(pattern)), Interval: interval}
	var err error
	switch rule.Pattern {
	case model.PatternWeekly:
		rule.DaysOfWeek, err = parseWeekdays(days)
	case model.PatternMonthly:
		rule.DaysOfMonth, err = parseMonthDays(days)
	case model.PatternYearly:
		rule.MonthsOfYear, err = parseMonths(months)
	}
	if err != nil {
		return nil, err
	}
	if days != "" && rule.Pattern != model.PatternWeekly && rule.Pattern != model.PatternMonthly {
		return nil, fmt.Errorf("--days applies to weekly and monthly tasks")
	}
	if months != "" && rule.Pattern != model.PatternYearly {
		return nil, fmt.Errorf("--months applies to yearly tasks")
	}
	if until != "" {
		end, err := time.ParseInLocation(time.DateOnly, until, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid --until %q, want YYYY-MM-DD", until)
		}
		rule.EndDate = &end
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
