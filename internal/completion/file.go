package completion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
)

// FileStore keeps completion state in a single YAML document. Every read goes
// to disk so edits made by another process are picked up.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

type fileState struct {
	Templates map[string]map[string]fileRecord `yaml:"templates"`
}

type fileRecord struct {
	Completed   bool       `yaml:"completed"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("completion: state file path is empty")
	}
	return &FileStore{path: path, now: time.Now}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *FileStore) CompletionMap(ctx context.Context, templateID string) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "read", Key: templateID, Err: err}
	}
	s.mu.Lock()
	state, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, &StoreError{Op: "read", Key: templateID, Err: err}
	}
	out := make(Map, len(state.Templates[templateID]))
	for raw, rec := range state.Templates[templateID] {
		k := identity.Key(raw)
		out[k] = model.CompletionRecord{
			Identity:    k,
			TemplateID:  templateID,
			Completed:   rec.Completed,
			CompletedAt: rec.CompletedAt,
		}
	}
	return out, nil
}

func (s *FileStore) SetCompletion(ctx context.Context, key identity.Key, completed bool) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "write", Key: string(key), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := NewRecord(key, completed, s.now())
	if err != nil {
		return &StoreError{Op: "write", Key: string(key), Err: err}
	}
	state, err := s.load()
	if err != nil {
		return &StoreError{Op: "write", Key: string(key), Err: err}
	}
	byKey, ok := state.Templates[rec.TemplateID]
	if !ok {
		byKey = make(map[string]fileRecord)
		state.Templates[rec.TemplateID] = byKey
	}
	byKey[string(key)] = fileRecord{Completed: rec.Completed, CompletedAt: rec.CompletedAt}
	if err := s.persist(state); err != nil {
		return &StoreError{Op: "write", Key: string(key), Err: err}
	}
	return nil
}

func (s *FileStore) Prune(ctx context.Context, before time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &StoreError{Op: "prune", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return 0, &StoreError{Op: "prune", Err: err}
	}
	cutoff := before.Format(time.DateOnly)
	removed := 0
	for templateID, byKey := range state.Templates {
		for raw := range byKey {
			_, d, perr := identity.Parse(identity.Key(raw))
			if perr != nil || d.Format(time.DateOnly) < cutoff {
				delete(byKey, raw)
				removed++
			}
		}
		if len(byKey) == 0 {
			delete(state.Templates, templateID)
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(state); err != nil {
		return 0, &StoreError{Op: "prune", Err: err}
	}
	return removed, nil
}

func (s *FileStore) load() (fileState, error) {
	state := fileState{Templates: make(map[string]map[string]fileRecord)}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return fileState{}, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return state, nil
	}
	if err := yaml.Unmarshal(raw, &state); err != nil {
		return fileState{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Templates == nil {
		state.Templates = make(map[string]map[string]fileRecord)
	}
	return state, nil
}

func (s *FileStore) persist(state fileState) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	payload, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return writeAtomic(s.path, payload)
}

func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".taskboard-completions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
