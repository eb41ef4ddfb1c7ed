package model

import (
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/taskboard/internal/identity"
)

// Occurrence is one concrete calendar instance of a template. Task carries
// the template's fields with the per-occurrence ones (ScheduledDate, Status,
// CompletedAt, ProgressPercentage, TimeSpent) replaced.
type Occurrence struct {
	Task       TaskTemplate
	TemplateID string
	Identity   identity.Key
}

func (o Occurrence) IsDone() bool {
	return o.Task.Status == StatusDone
}

// CompletionRecord is the persisted completion state of one occurrence.
type CompletionRecord struct {
	Identity    identity.Key
	TemplateID  string
	Completed   bool
	CompletedAt *time.Time
}

func (c CompletionRecord) Validate() error {
	if strings.TrimSpace(string(c.Identity)) == "" {
		return errors.New("model: completion identity is required")
	}
	if strings.TrimSpace(c.TemplateID) == "" {
		return errors.New("model: completion template_id is required")
	}
	id, err := identity.TemplateID(c.Identity)
	if err != nil {
		return err
	}
	if id != c.TemplateID {
		return errors.New("model: completion identity does not belong to template_id")
	}
	if !c.Completed && c.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when not completed")
	}
	return nil
}
