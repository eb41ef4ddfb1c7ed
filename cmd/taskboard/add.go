package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
	"github.com/sandeepkv93/taskboard/internal/views"
)

const addPreview = 5

type addFlags struct {
	at          string
	every       string
	interval    int
	days        string
	months      string
	until       string
	tags        []string
	priority    string
	description string
	board       string
	estimate    time.Duration
}

func addCmd(flags *rootFlags) *cobra.Command {
	f := &addFlags{}
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task template",
		Long: `Create a task, optionally repeating.

Examples:
  taskboard add "Dentist" --at "2024-03-04 14:30"
  taskboard add "Standup" --at "2024-01-01 09:00" --every weekly --days mon,wed,fri
  taskboard add "Rent" --at 2024-01-31 --every monthly
  taskboard add "Taxes" --at 2024-04-15 --every yearly --months apr --until 2030-12-31`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			tmpl, err := f.template(strings.Join(args, " "), a.today(), a.loc)
			if err != nil {
				return err
			}
			if err := a.repo.SaveTemplate(cmd.Context(), tmpl); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %s %q\n", tmpl.ID, tmpl.Title)
			if !tmpl.IsRecurring() {
				fmt.Fprintf(out, "scheduled %s\n", tmpl.ScheduledDate.Format("Mon 2006-01-02 15:04"))
				return nil
			}
			fmt.Fprintf(out, "repeats %s; next:\n", views.DescribeRule(tmpl.Recurrence))
			for _, at := range preview(tmpl, addPreview) {
				fmt.Fprintf(out, "  %s\n", at.Format("Mon 2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.at, "at", "", "first occurrence, YYYY-MM-DD [HH:MM] (default: now)")
	cmd.Flags().StringVar(&f.every, "every", "", "daily, weekly, monthly or yearly")
	cmd.Flags().IntVar(&f.interval, "interval", 1, "repeat every N periods")
	cmd.Flags().StringVar(&f.days, "days", "", "weekdays (mon,wed) for weekly, days of month (1,15) for monthly")
	cmd.Flags().StringVar(&f.months, "months", "", "months (jan,jul) for yearly")
	cmd.Flags().StringVar(&f.until, "until", "", "last possible day, YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag, repeatable")
	cmd.Flags().StringVar(&f.priority, "priority", string(model.PriorityMedium), "low, medium, high or urgent")
	cmd.Flags().StringVar(&f.description, "description", "", "markdown description")
	cmd.Flags().StringVar(&f.board, "board", "", "board id")
	cmd.Flags().DurationVar(&f.estimate, "estimate", 0, "time estimate, e.g. 45m")
	return cmd
}

func (f *addFlags) template(title string, now time.Time, loc *time.Location) (model.TaskTemplate, error) {
	at := now.Truncate(time.Minute)
	if f.at != "" {
		parsed, err := parseWhen(f.at, loc)
		if err != nil {
			return model.TaskTemplate{}, err
		}
		at = parsed
	}
	rule, err := buildRule(f.every, f.interval, f.days, f.months, f.until, loc)
	if err != nil {
		return model.TaskTemplate{}, err
	}
	tmpl := model.TaskTemplate{
		ID:            uuid.NewString(),
		BoardID:       f.board,
		Title:         strings.TrimSpace(title),
		Description:   f.description,
		Status:        model.StatusTodo,
		Priority:      model.Priority(strings.ToLower(f.priority)),
		Tags:          f.tags,
		ScheduledDate: at,
		TimeEstimate:  f.estimate,
		Recurrence:    rule,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tmpl.Validate(); err != nil {
		return model.TaskTemplate{}, err
	}
	return tmpl, nil
}

// preview lists up to n upcoming dates of a recurring template, looking at
// most ten years past its anchor.
func preview(t model.TaskTemplate, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for at := range recurrence.Sequence(*t.Recurrence, t.ScheduledDate, t.ScheduledDate.AddDate(10, 0, 0)) {
		out = append(out, at)
		if len(out) == n {
			break
		}
	}
	return out
}
