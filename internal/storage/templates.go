package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// SaveTemplate inserts or replaces a template together with its recurrence
// rule and tags in one transaction.
func (r *SQLiteRepository) SaveTemplate(ctx context.Context, tmpl model.TaskTemplate) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}
	task, rule := templateRows(tmpl)
	return r.withTx(ctx, func(q querier) error {
		err := updateTask(ctx, q, task)
		if errors.Is(err, ErrNotFound) {
			err = createTask(ctx, q, task)
		}
		if err != nil {
			return fmt.Errorf("save task %s: %w", task.ID, err)
		}
		if rule == nil {
			_, err = q.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE task_id = ?`, task.ID)
			return err
		}
		if err := putRecurrence(ctx, q, *rule); err != nil {
			return fmt.Errorf("save recurrence %s: %w", task.ID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (model.TaskTemplate, error) {
	task, err := getTask(ctx, r.db, id)
	if err != nil {
		return model.TaskTemplate{}, err
	}
	return r.assemble(ctx, task)
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, filter TaskListFilter) ([]model.TaskTemplate, error) {
	tasks, err := r.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]model.TaskTemplate, 0, len(tasks))
	for _, task := range tasks {
		tmpl, err := r.assemble(ctx, task)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, nil
}

func (r *SQLiteRepository) assemble(ctx context.Context, task Task) (model.TaskTemplate, error) {
	rule, err := getRecurrence(ctx, r.db, task.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return templateFromRows(task, nil)
	case err != nil:
		return model.TaskTemplate{}, err
	default:
		return templateFromRows(task, &rule)
	}
}

func templateRows(tmpl model.TaskTemplate) (Task, *RecurrenceRule) {
	task := Task{
		ID:                  tmpl.ID,
		BoardID:             tmpl.BoardID,
		Title:               tmpl.Title,
		Description:         tmpl.Description,
		Status:              string(tmpl.Status),
		Priority:            string(tmpl.Priority),
		Timezone:            "UTC",
		TimeEstimateMinutes: int(tmpl.TimeEstimate / time.Minute),
		TimeSpentMinutes:    int(tmpl.TimeSpent / time.Minute),
		ProgressPercentage:  tmpl.ProgressPercentage,
		Tags:                tmpl.Tags,
		CompletedAt:         tmpl.CompletedAt,
		CreatedAt:           tmpl.CreatedAt,
		UpdatedAt:           tmpl.UpdatedAt,
	}
	if !tmpl.ScheduledDate.IsZero() {
		scheduled := tmpl.ScheduledDate
		task.ScheduledAt = &scheduled
		task.Timezone = scheduled.Location().String()
	}
	if tmpl.Recurrence == nil {
		return task, nil
	}
	src := tmpl.Recurrence
	rule := &RecurrenceRule{
		TaskID:        tmpl.ID,
		Pattern:       string(src.Pattern),
		IntervalValue: src.Interval,
		DaysOfMonth:   src.DaysOfMonth,
		EndDate:       src.EndDate,
		CreatedAt:     tmpl.CreatedAt,
	}
	for _, d := range src.DaysOfWeek {
		rule.DaysOfWeek = append(rule.DaysOfWeek, int(d))
	}
	for _, m := range src.MonthsOfYear {
		rule.MonthsOfYear = append(rule.MonthsOfYear, int(m))
	}
	return task, rule
}

func templateFromRows(task Task, rule *RecurrenceRule) (model.TaskTemplate, error) {
	out := model.TaskTemplate{
		ID:                 task.ID,
		BoardID:            task.BoardID,
		Title:              task.Title,
		Description:        task.Description,
		Status:             model.Status(task.Status),
		Priority:           model.Priority(task.Priority),
		Tags:               task.Tags,
		TimeEstimate:       time.Duration(task.TimeEstimateMinutes) * time.Minute,
		TimeSpent:          time.Duration(task.TimeSpentMinutes) * time.Minute,
		ProgressPercentage: task.ProgressPercentage,
		CompletedAt:        task.CompletedAt,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
	}
	if task.ScheduledAt != nil {
		loc, err := time.LoadLocation(timezoneOrUTC(task.Timezone))
		if err != nil {
			return model.TaskTemplate{}, fmt.Errorf("task %s timezone: %w", task.ID, err)
		}
		out.ScheduledDate = task.ScheduledAt.In(loc)
	}
	if rule == nil {
		return out, nil
	}
	rec := &model.RecurrenceRule{
		Pattern:     model.Pattern(rule.Pattern),
		Interval:    rule.IntervalValue,
		DaysOfMonth: rule.DaysOfMonth,
		EndDate:     rule.EndDate,
	}
	for _, d := range rule.DaysOfWeek {
		rec.DaysOfWeek = append(rec.DaysOfWeek, time.Weekday(d))
	}
	for _, m := range rule.MonthsOfYear {
		rec.MonthsOfYear = append(rec.MonthsOfYear, time.Month(m))
	}
	out.Recurrence = rec
	return out, nil
}
