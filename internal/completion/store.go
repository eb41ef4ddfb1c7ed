// Package completion defines the per-occurrence completion store and its
// in-memory and YAML file implementations. The SQLite implementation lives in
// internal/storage.
package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
)

// Map is the completion state of one template keyed by occurrence identity.
type Map map[identity.Key]model.CompletionRecord

// Store is the read/write boundary for occurrence completion state.
type Store interface {
	// CompletionMap returns every record stored for templateID. A template
	// with no records yields an empty, non-nil map.
	CompletionMap(ctx context.Context, templateID string) (Map, error)
	// SetCompletion records the completion state of one occurrence. Later
	// writes to the same key replace earlier ones.
	SetCompletion(ctx context.Context, key identity.Key, completed bool) error
}

// Pruner is implemented by stores that can drop records for old days.
type Pruner interface {
	// Prune removes records whose occurrence day is before the calendar day
	// of before, returning how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// StoreError wraps a failure reading or writing completion state.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("completion: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewRecord builds the record written for key at now.
func NewRecord(key identity.Key, completed bool, now time.Time) (model.CompletionRecord, error) {
	templateID, err := identity.TemplateID(key)
	if err != nil {
		return model.CompletionRecord{}, err
	}
	rec := model.CompletionRecord{
		Identity:   key,
		TemplateID: templateID,
		Completed:  completed,
	}
	if completed {
		at := now.UTC()
		rec.CompletedAt = &at
	}
	return rec, nil
}
