package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatus   = errors.New("model: invalid task status")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// DefaultOpenStatus is the status an occurrence falls back to when the
// template itself is done but the occurrence has no completion record.
const DefaultOpenStatus = StatusBacklog

func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// TaskTemplate is a task row as supplied by the board store. When Recurrence
// is set, ScheduledDate is the anchor for every occurrence.
type TaskTemplate struct {
	ID                 string
	BoardID            string
	Title              string
	Description        string
	Status             Status
	Priority           Priority
	Tags               []string
	ScheduledDate      time.Time
	TimeEstimate       time.Duration
	TimeSpent          time.Duration
	ProgressPercentage int
	CompletedAt        *time.Time
	Recurrence         *RecurrenceRule
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (t TaskTemplate) IsRecurring() bool {
	return t.Recurrence != nil
}

func (t TaskTemplate) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.ProgressPercentage < 0 || t.ProgressPercentage > 100 {
		return fmt.Errorf("model: progress_percentage out of range: %d", t.ProgressPercentage)
	}
	if t.Recurrence != nil {
		if t.ScheduledDate.IsZero() {
			return errors.New("model: recurring task requires scheduled_date")
		}
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with t.
func (t TaskTemplate) Clone() TaskTemplate {
	out := t
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	if t.Recurrence != nil {
		rule := t.Recurrence.Clone()
		out.Recurrence = &rule
	}
	return out
}
