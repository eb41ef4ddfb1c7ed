package occurrence

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
)

const (
	defaultParallelism = 8
	// readTimeout bounds a shared completion read once no caller can cancel it.
	readTimeout = 30 * time.Second
)

var ErrNotRecurring = errors.New("occurrence: template does not repeat")

type Config struct {
	// MaxOccurrences caps dates per template per window.
	MaxOccurrences int
	// Strict turns materialization logic errors into returned errors instead
	// of logged skips.
	Strict bool
	// Parallelism bounds concurrent template expansion in WindowAll.
	Parallelism int
}

// View is one window of occurrences. SyncErr is set when completion state
// could not be read; affected occurrences are shown as not completed.
type View struct {
	Window      recurrence.Window
	Occurrences []model.Occurrence
	Truncated   bool
	SyncErr     error
	// Skipped lists templates left out of a WindowAll view because they
	// could not be expanded.
	Skipped []string
}

type Service struct {
	store       completion.Store
	mat         Materializer
	strict      bool
	parallelism int
	reads       singleflight.Group
}

func NewService(store completion.Store, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("occurrence: nil completion store")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	return &Service{
		store:       store,
		mat:         Materializer{Generator: recurrence.Generator{MaxOccurrences: cfg.MaxOccurrences}},
		strict:      cfg.Strict,
		parallelism: cfg.Parallelism,
	}, nil
}

// Window expands one template over w and merges its completion state.
func (s *Service) Window(ctx context.Context, t model.TaskTemplate, w recurrence.Window) (View, error) {
	view := View{Window: w}
	res, err := s.mat.Generator.Generate(t, w)
	if err != nil {
		return view, fmt.Errorf("expand %s: %w", t.ID, err)
	}
	view.Truncated = res.Truncated
	if res.Truncated {
		log.Warn("occurrence window truncated", "template", t.ID, "limit", len(res.Dates))
	}
	if len(res.Dates) == 0 {
		return view, nil
	}

	completions := completion.Map{}
	if t.IsRecurring() {
		got, readErr := s.completionMap(ctx, t.ID)
		if readErr != nil {
			log.Error("read completions", readErr, "template", t.ID)
			view.SyncErr = readErr
		} else {
			completions = got
		}
	}

	view.Occurrences = make([]model.Occurrence, 0, len(res.Dates))
	for _, day := range res.Dates {
		occ, matErr := s.mat.Materialize(t, day, completions)
		if matErr != nil {
			if s.strict {
				return view, matErr
			}
			log.Error("skip occurrence", matErr, "template", t.ID, "day", day.Format(time.DateOnly))
			continue
		}
		view.Occurrences = append(view.Occurrences, occ)
	}
	return view, nil
}

// WindowAll expands every template concurrently and merges the results in
// scheduled order. Templates that fail to expand are skipped and logged
// unless the service is strict.
func (s *Service) WindowAll(ctx context.Context, templates []model.TaskTemplate, w recurrence.Window) (View, error) {
	if err := w.Validate(); err != nil {
		return View{Window: w}, err
	}
	views := make([]View, len(templates))
	failed := make([]error, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, t := range templates {
		g.Go(func() error {
			v, err := s.Window(gctx, t, w)
			if err != nil {
				if s.strict {
					return err
				}
				failed[i] = err
				return nil
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return View{Window: w}, err
	}

	out := View{Window: w}
	var syncErrs []error
	for i, v := range views {
		if failed[i] != nil {
			log.Error("skip template", failed[i], "template", templates[i].ID)
			out.Skipped = append(out.Skipped, templates[i].ID)
			continue
		}
		out.Occurrences = append(out.Occurrences, v.Occurrences...)
		out.Truncated = out.Truncated || v.Truncated
		if v.SyncErr != nil {
			syncErrs = append(syncErrs, v.SyncErr)
		}
	}
	out.SyncErr = errors.Join(syncErrs...)
	SortOccurrences(out.Occurrences)
	return out, nil
}

// Toggle records the completion state of one occurrence.
func (s *Service) Toggle(ctx context.Context, key identity.Key, completed bool) error {
	templateID, err := identity.TemplateID(key)
	if err != nil {
		return err
	}
	if err := s.store.SetCompletion(ctx, key, completed); err != nil {
		return err
	}
	s.reads.Forget(templateID)
	log.Debug("completion toggled", "identity", key, "completed", completed)
	return nil
}

// ToggleOccurrence is Toggle for callers holding the template: it rejects
// keys of other templates, non-recurring templates and days that are not
// occurrences of t.
func (s *Service) ToggleOccurrence(ctx context.Context, t model.TaskTemplate, key identity.Key, completed bool) error {
	templateID, day, err := identity.Parse(key)
	if err != nil {
		return err
	}
	if templateID != t.ID {
		return fmt.Errorf("%w: %s belongs to %s", identity.ErrMalformedKey, key, templateID)
	}
	if !t.IsRecurring() {
		return fmt.Errorf("%w: %s", ErrNotRecurring, t.ID)
	}
	if !s.mat.Generator.Matches(t, day) {
		return fmt.Errorf("%w: %s on %s", ErrOutsideRecurrence, t.ID, day.Format(time.DateOnly))
	}
	return s.Toggle(ctx, key, completed)
}

// completionMap coalesces concurrent reads for the same template. The shared
// read outlives any single caller's context; each caller stops waiting when
// its own context ends.
func (s *Service) completionMap(ctx context.Context, templateID string) (completion.Map, error) {
	ch := s.reads.DoChan(templateID, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
		defer cancel()
		return s.store.CompletionMap(readCtx, templateID)
	})
	select {
	case <-ctx.Done():
		return nil, &completion.StoreError{Op: "read", Key: templateID, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(completion.Map), nil
	}
}

// SortOccurrences orders by scheduled time, then identity.
func SortOccurrences(items []model.Occurrence) {
	slices.SortStableFunc(items, func(a, b model.Occurrence) int {
		if c := a.Task.ScheduledDate.Compare(b.Task.ScheduledDate); c != 0 {
			return c
		}
		return cmp.Compare(string(a.Identity), string(b.Identity))
	})
}

// Lookup finds the occurrence with key in items.
func Lookup(items []model.Occurrence, key identity.Key) (model.Occurrence, bool) {
	i := slices.IndexFunc(items, func(o model.Occurrence) bool { return o.Identity == key })
	if i < 0 {
		return model.Occurrence{}, false
	}
	return items[i], true
}

// Filter returns the occurrences whose title or tags contain query, ignoring
// case.
func Filter(items []model.Occurrence, query string) []model.Occurrence {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	var out []model.Occurrence
	for _, o := range items {
		if strings.Contains(strings.ToLower(o.Task.Title), q) || slices.ContainsFunc(o.Task.Tags, func(tag string) bool {
			return strings.Contains(strings.ToLower(tag), q)
		}) {
			out = append(out, o)
		}
	}
	return out
}

// FilterTag returns the occurrences carrying tag, ignoring case. An empty tag
// keeps everything.
func FilterTag(items []model.Occurrence, tag string) []model.Occurrence {
	if tag == "" {
		return items
	}
	var out []model.Occurrence
	for _, o := range items {
		if slices.ContainsFunc(o.Task.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			out = append(out, o)
		}
	}
	return out
}
