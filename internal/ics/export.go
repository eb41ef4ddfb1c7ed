// Package ics publishes occurrences and recurring templates as iCalendar
// feeds.
package ics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/model"
)

const productID = "-//taskboard//occurrences//EN"

// DefaultDuration is used for events whose template has no time estimate.
const DefaultDuration = 30 * time.Minute

// Export builds a calendar with one VEVENT per occurrence. The event UID is
// the occurrence identity so clients keep instances apart across refreshes.
func Export(occurrences []model.Occurrence, now time.Time) string {
	cal := newCalendar()
	for _, occ := range occurrences {
		ev := cal.AddEvent(string(occ.Identity))
		fillEvent(ev, occ.Task, now)
		if occ.IsDone() {
			ev.SetStatus(ical.ObjectStatusCompleted)
		} else {
			ev.SetStatus(ical.ObjectStatusConfirmed)
		}
		ev.SetProperty(ical.ComponentPropertyRelatedTo, occ.TemplateID)
	}
	return cal.Serialize()
}

// ExportTemplates builds one master VEVENT per recurring template carrying
// its RRULE. Templates whose rule has no exact RRULE form are left out and
// logged.
func ExportTemplates(templates []model.TaskTemplate, now time.Time) string {
	cal := newCalendar()
	for _, t := range templates {
		if !t.IsRecurring() {
			continue
		}
		rule, err := RRule(*t.Recurrence, t.ScheduledDate)
		if err != nil {
			if errors.Is(err, ErrNotExpressible) {
				log.Warn("ics: template skipped", "template", t.ID, "reason", err)
			} else {
				log.Error("ics: template skipped", err, "template", t.ID)
			}
			continue
		}
		ev := cal.AddEvent(t.ID)
		fillEvent(ev, t, now)
		ev.AddRrule(rule)
	}
	return cal.Serialize()
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	return cal
}

func fillEvent(ev *ical.VEvent, t model.TaskTemplate, now time.Time) {
	ev.SetDtStampTime(now)
	if !t.CreatedAt.IsZero() {
		ev.SetCreatedTime(t.CreatedAt)
	}
	if !t.UpdatedAt.IsZero() {
		ev.SetModifiedAt(t.UpdatedAt)
	}
	duration := t.TimeEstimate
	if duration <= 0 {
		duration = DefaultDuration
	}
	ev.SetStartAt(t.ScheduledDate)
	ev.SetEndAt(t.ScheduledDate.Add(duration))
	ev.SetSummary(t.Title)
	if t.Description != "" {
		ev.SetDescription(t.Description)
	}
	if len(t.Tags) > 0 {
		ev.SetProperty(ical.ComponentPropertyCategories, strings.Join(t.Tags, ","))
	}
	ev.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(icalPriority(t.Priority)))
}

// icalPriority maps to RFC 5545 PRIORITY, where 1 is highest and 0 undefined.
func icalPriority(p model.Priority) int {
	switch p {
	case model.PriorityUrgent:
		return 1
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 5
	case model.PriorityLow:
		return 9
	default:
		return 0
	}
}
