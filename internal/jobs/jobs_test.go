package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

type staticTemplates struct {
	items []model.TaskTemplate
	err   error
}

func (s staticTemplates) ListTemplates(context.Context, storage.TaskListFilter) ([]model.TaskTemplate, error) {
	return s.items, s.err
}

var jobsNow = time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)

func hourly() model.TaskTemplate {
	return model.TaskTemplate{
		ID:            "tmpl-meds",
		Title:         "Take meds",
		Status:        model.StatusTodo,
		Priority:      model.PriorityHigh,
		ScheduledDate: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Recurrence:    &model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 1},
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newRunner(t *testing.T, src TemplateSource, store *completion.MemoryStore, engine *scheduler.Engine) *Runner {
	t.Helper()
	svc, err := occurrence.NewService(store, occurrence.Config{})
	require.NoError(t, err)
	r, err := New(Config{
		RefreshCron: "*/15 * * * *",
		PruneCron:   "30 3 * * *",
		Horizon:     48 * time.Hour,
		Retention:   30 * 24 * time.Hour,
		Location:    time.UTC,
	}, src, svc, engine, store)
	require.NoError(t, err)
	r.SetClock(func() time.Time { return jobsNow })
	return r
}

func TestRefreshRemindersSchedulesOpenOccurrences(t *testing.T) {
	store := completion.NewMemoryStore()
	engine := scheduler.NewEngine(8)
	r := newRunner(t, staticTemplates{items: []model.TaskTemplate{hourly()}}, store, engine)

	done := identity.Make("tmpl-meds", time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SetCompletion(context.Background(), done, true))

	n, err := r.RefreshReminders(context.Background())
	require.NoError(t, err)
	// Jan 5 09:00 and Jan 6 09:00 are in range; Jan 6 is already completed.
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, engine.Pending())

	n, err = r.RefreshReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "second refresh must not duplicate events")
}

func TestRefreshRemindersCancelsCompleted(t *testing.T) {
	store := completion.NewMemoryStore()
	engine := scheduler.NewEngine(8)
	r := newRunner(t, staticTemplates{items: []model.TaskTemplate{hourly()}}, store, engine)

	_, err := r.RefreshReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, engine.Pending())

	key := identity.Make("tmpl-meds", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SetCompletion(context.Background(), key, true))
	_, err = r.RefreshReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, engine.Pending())
}

func TestRefreshRemindersSurfacesSourceErrors(t *testing.T) {
	boom := errors.New("db locked")
	r := newRunner(t, staticTemplates{err: boom}, completion.NewMemoryStore(), scheduler.NewEngine(1))
	_, err := r.RefreshReminders(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPruneCompletionsUsesRetention(t *testing.T) {
	store := completion.NewMemoryStore()
	r := newRunner(t, staticTemplates{}, store, nil)
	ctx := context.Background()

	old := identity.Make("tmpl-meds", time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))
	recent := identity.Make("tmpl-meds", time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SetCompletion(ctx, old, true))
	require.NoError(t, store.SetCompletion(ctx, recent, true))

	n, err := r.PruneCompletions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := store.CompletionMap(ctx, "tmpl-meds")
	require.NoError(t, err)
	assert.Contains(t, left, recent)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	svc, err := occurrence.NewService(completion.NewMemoryStore(), occurrence.Config{})
	require.NoError(t, err)
	_, err = New(Config{RefreshCron: "every now and then", PruneCron: "@daily"}, staticTemplates{}, svc, scheduler.NewEngine(1), nil)
	assert.Error(t, err)
}
