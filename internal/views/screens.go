package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// AgendaRow is one occurrence line of the agenda. Index is 1-based and is the
// row number accepted by the done and undo palette commands.
type AgendaRow struct {
	Index    int
	Identity string
	Title    string
	Day      string
	Time     string
	Done     bool
	Priority string
	Tags     []string
	Repeats  bool
}

type AgendaData struct {
	Title    string
	Rows     []AgendaRow
	Cursor   int
	Filter   string
	Warnings []string
}

type DetailData struct {
	Row         AgendaRow
	Description string
	Rule        string
	Estimate    string
	CompletedAt string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

// Rows converts occurrences, already sorted, to agenda rows.
func Rows(occurrences []model.Occurrence) []AgendaRow {
	rows := make([]AgendaRow, 0, len(occurrences))
	for i, o := range occurrences {
		rows = append(rows, AgendaRow{
			Index:    i + 1,
			Identity: o.Identity.String(),
			Title:    o.Task.Title,
			Day:      o.Task.ScheduledDate.Format("Mon 2006-01-02"),
			Time:     o.Task.ScheduledDate.Format("15:04"),
			Done:     o.IsDone(),
			Priority: string(o.Task.Priority),
			Tags:     o.Task.Tags,
			Repeats:  o.Task.IsRecurring(),
		})
	}
	return rows
}

func RenderAgenda(data AgendaData) string {
	var b strings.Builder
	b.WriteString(data.Title + "\n")
	if data.Filter != "" {
		b.WriteString(fmt.Sprintf("filter: %s\n", data.Filter))
	}
	for _, w := range data.Warnings {
		b.WriteString(errorStyle.Render("! "+w) + "\n")
	}
	if len(data.Rows) == 0 {
		b.WriteString("\n(nothing scheduled)")
		return b.String()
	}

	day := ""
	for i, row := range data.Rows {
		if row.Day != day {
			day = row.Day
			b.WriteString(fmt.Sprintf("\n%s\n", day))
		}
		cursor := " "
		if i == data.Cursor {
			cursor = cursorStyle.Render(">")
		}
		line := fmt.Sprintf("%2d %s %s %s%s", row.Index, checkbox(row.Done), row.Time, row.Title, badges(row))
		if row.Done {
			line = doneStyle.Render(line)
		}
		b.WriteString(cursor + " " + line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// DetailMarkdown describes one occurrence for the detail pane.
func DetailMarkdown(data DetailData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## %s\n\n", data.Row.Title))
	b.WriteString(fmt.Sprintf("- **when:** %s %s\n", data.Row.Day, data.Row.Time))
	b.WriteString(fmt.Sprintf("- **status:** %s\n", statusWord(data.Row.Done)))
	if data.CompletedAt != "" {
		b.WriteString(fmt.Sprintf("- **completed:** %s\n", data.CompletedAt))
	}
	if data.Row.Priority != "" {
		b.WriteString(fmt.Sprintf("- **priority:** %s\n", data.Row.Priority))
	}
	if data.Rule != "" {
		b.WriteString(fmt.Sprintf("- **repeats:** %s\n", data.Rule))
	}
	if data.Estimate != "" {
		b.WriteString(fmt.Sprintf("- **estimate:** %s\n", data.Estimate))
	}
	if len(data.Row.Tags) > 0 {
		b.WriteString(fmt.Sprintf("- **tags:** %s\n", strings.Join(data.Row.Tags, ", ")))
	}
	b.WriteString(fmt.Sprintf("- **id:** `%s`\n", data.Row.Identity))
	if strings.TrimSpace(data.Description) != "" {
		b.WriteString("\n" + data.Description + "\n")
	}
	return b.String()
}

// AgendaMarkdown renders rows as a markdown agenda grouped by day.
func AgendaMarkdown(title string, rows []AgendaRow, warnings []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n", title))
	for _, w := range warnings {
		b.WriteString(fmt.Sprintf("\n> **warning:** %s\n", w))
	}
	if len(rows) == 0 {
		b.WriteString("\n_nothing scheduled_\n")
		return b.String()
	}
	day := ""
	for _, row := range rows {
		if row.Day != day {
			day = row.Day
			b.WriteString(fmt.Sprintf("\n## %s\n\n", day))
		}
		mark := " "
		if row.Done {
			mark = "x"
		}
		b.WriteString(fmt.Sprintf("- [%s] %s **%s**%s `%s`\n", mark, row.Time, row.Title, badges(row), row.Identity))
	}
	return b.String()
}

// DescribeRule renders a recurrence rule as a short phrase.
func DescribeRule(rule *model.RecurrenceRule) string {
	if rule == nil {
		return ""
	}
	unit := map[model.Pattern]string{
		model.PatternDaily:   "day",
		model.PatternWeekly:  "week",
		model.PatternMonthly: "month",
		model.PatternYearly:  "year",
	}[rule.Pattern]
	out := "every " + unit
	if rule.Interval > 1 {
		out = fmt.Sprintf("every %d %ss", rule.Interval, unit)
	}
	switch {
	case len(rule.DaysOfWeek) > 0:
		names := make([]string, 0, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			names = append(names, d.String()[:3])
		}
		out += " on " + strings.Join(names, ", ")
	case len(rule.DaysOfMonth) > 0:
		days := make([]string, 0, len(rule.DaysOfMonth))
		for _, d := range rule.DaysOfMonth {
			days = append(days, fmt.Sprint(d))
		}
		out += " on day " + strings.Join(days, ", ")
	case len(rule.MonthsOfYear) > 0:
		months := make([]string, 0, len(rule.MonthsOfYear))
		for _, m := range rule.MonthsOfYear {
			months = append(months, m.String()[:3])
		}
		out += " in " + strings.Join(months, ", ")
	}
	if rule.EndDate != nil {
		out += " until " + rule.EndDate.Format(time.DateOnly)
	}
	return out
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return input
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func statusWord(done bool) string {
	if done {
		return "done"
	}
	return "open"
}

func badges(row AgendaRow) string {
	var parts []string
	if row.Repeats {
		parts = append(parts, "↻")
	}
	switch row.Priority {
	case string(model.PriorityUrgent):
		parts = append(parts, "!!")
	case string(model.PriorityHigh):
		parts = append(parts, "!")
	}
	for _, tag := range row.Tags {
		parts = append(parts, "#"+tag)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
