// Package occurrence turns generated dates into concrete occurrences and
// merges per-occurrence completion state into them.
package occurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
)

var ErrOutsideRecurrence = errors.New("occurrence: date is not an occurrence of the template")

type Materializer struct {
	Generator recurrence.Generator
}

// Materialize builds the occurrence of t on the calendar day of day. The
// template's own completion is never inherited: without a completed record
// the occurrence is open, and a done template yields model.DefaultOpenStatus.
// A non-recurring template is returned unchanged with its identity attached.
func (m Materializer) Materialize(t model.TaskTemplate, day time.Time, completions completion.Map) (model.Occurrence, error) {
	task := t.Clone()
	if !t.IsRecurring() {
		return model.Occurrence{
			Task:       task,
			TemplateID: t.ID,
			Identity:   identity.Make(t.ID, t.ScheduledDate),
		}, nil
	}
	if !m.Generator.Matches(t, day) {
		return model.Occurrence{}, fmt.Errorf("%w: %s on %s", ErrOutsideRecurrence, t.ID, day.Format(time.DateOnly))
	}

	task.ScheduledDate = recurrence.AtAnchorClock(day, t.ScheduledDate)
	key := identity.Make(t.ID, task.ScheduledDate)
	task.TimeSpent = 0

	if rec, ok := completions[key]; ok && rec.Completed {
		task.Status = model.StatusDone
		task.ProgressPercentage = 100
		task.CompletedAt = nil
		if rec.CompletedAt != nil {
			at := *rec.CompletedAt
			task.CompletedAt = &at
		}
	} else {
		task.CompletedAt = nil
		task.ProgressPercentage = 0
		if task.Status == model.StatusDone {
			task.Status = model.DefaultOpenStatus
		}
	}

	return model.Occurrence{Task: task, TemplateID: t.ID, Identity: key}, nil
}
