package completion

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Map
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Map),
		now:     time.Now,
	}
}

// SetClock overrides the time source used to stamp CompletedAt.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) CompletionMap(ctx context.Context, templateID string) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "read", Key: templateID, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Map, len(s.records[templateID]))
	for k, rec := range s.records[templateID] {
		out[k] = copyRecord(rec)
	}
	return out, nil
}

func (s *MemoryStore) SetCompletion(ctx context.Context, key identity.Key, completed bool) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "write", Key: string(key), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := NewRecord(key, completed, s.now())
	if err != nil {
		return &StoreError{Op: "write", Key: string(key), Err: err}
	}
	byKey, ok := s.records[rec.TemplateID]
	if !ok {
		byKey = make(Map)
		s.records[rec.TemplateID] = byKey
	}
	byKey[key] = rec
	return nil
}

func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &StoreError{Op: "prune", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pruneRecords(s.records, before), nil
}

func pruneRecords(records map[string]Map, before time.Time) int {
	cutoff := before.Format(time.DateOnly)
	removed := 0
	for templateID, byKey := range records {
		for k := range byKey {
			_, d, err := identity.Parse(k)
			if err != nil || d.Format(time.DateOnly) < cutoff {
				delete(byKey, k)
				removed++
			}
		}
		if len(byKey) == 0 {
			delete(records, templateID)
		}
	}
	return removed
}

func copyRecord(rec model.CompletionRecord) model.CompletionRecord {
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		rec.CompletedAt = &at
	}
	return rec
}
