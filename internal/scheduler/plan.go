package scheduler

import (
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// PlanDue returns events for the open occurrences scheduled in
// (now, now+horizon]. Completed occurrences are left out.
func PlanDue(occurrences []model.Occurrence, now time.Time, horizon time.Duration) []DueEvent {
	limit := now.Add(horizon)
	var out []DueEvent
	for _, occ := range occurrences {
		if occ.IsDone() {
			continue
		}
		at := occ.Task.ScheduledDate
		if !at.After(now) || at.After(limit) {
			continue
		}
		out = append(out, DueEvent{
			ID:         string(occ.Identity),
			TemplateID: occ.TemplateID,
			Title:      occ.Task.Title,
			DueAt:      at,
		})
	}
	return out
}
