package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/fsnotify/fsnotify"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

var testNow = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

type fakeTemplates struct {
	items []model.TaskTemplate
	err   error
}

func (f fakeTemplates) ListTemplates(context.Context, storage.TaskListFilter) ([]model.TaskTemplate, error) {
	return f.items, f.err
}

type offlineStore struct {
	completion.Store
}

func (offlineStore) CompletionMap(context.Context, string) (completion.Map, error) {
	return nil, &completion.StoreError{Op: "read", Err: errors.New("disk gone")}
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func fixtures() []model.TaskTemplate {
	created := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	return []model.TaskTemplate{
		{
			ID:            "standup",
			Title:         "Standup",
			Status:        model.StatusTodo,
			Priority:      model.PriorityMedium,
			Tags:          []string{"work"},
			ScheduledDate: time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC),
			Recurrence:    &model.RecurrenceRule{Pattern: model.PatternDaily, Interval: 1},
			CreatedAt:     created,
		},
		{
			ID:            "dentist",
			Title:         "Dentist",
			Status:        model.StatusTodo,
			Priority:      model.PriorityHigh,
			Tags:          []string{"health"},
			ScheduledDate: time.Date(2024, 1, 4, 14, 0, 0, 0, time.UTC),
			CreatedAt:     created,
		},
	}
}

func newModel(t *testing.T, store completion.Store, notifier DesktopNotifier) Model {
	t.Helper()
	svc, err := occurrence.NewService(store, occurrence.Config{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	m, err := New(Options{
		Templates: fakeTemplates{items: fixtures()},
		Service:   svc,
		Notifier:  notifier,
		Location:  time.UTC,
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return loaded(t, m)
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(m.loadCmd()())
	return updated.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// palette opens the command palette, types input and submits it.
func palette(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	m, _ = press(t, m, runes("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette to open")
	}
	m, _ = press(t, m, runes(input))
	return press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// settle runs a toggle command, feeds its result back and reloads.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, _ := m.Update(cmd())
	return loaded(t, updated.(Model))
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without templates and service")
	}
}

func TestLoadShowsCurrentWeek(t *testing.T) {
	m := newModel(t, completion.NewMemoryStore(), nil)
	if got := m.Window.Start.Format(time.DateOnly); got != "2023-12-31" {
		t.Fatalf("expected week starting 2023-12-31, got %s", got)
	}
	if len(m.Items) != 8 {
		t.Fatalf("expected 7 standups and 1 dentist, got %d", len(m.Items))
	}
	if m.Items[5].TemplateID != "dentist" {
		t.Fatalf("expected dentist after the thursday standup, got %s", m.Items[5].Identity)
	}
	if m.Loading || m.Status.IsError {
		t.Fatalf("unexpected state: loading=%v status=%+v", m.Loading, m.Status)
	}
	if !strings.Contains(m.View(), "Standup") {
		t.Fatal("expected agenda to render standups")
	}
}

func TestToggleKeyCompletesOnlySelectedDay(t *testing.T) {
	store := completion.NewMemoryStore()
	m := newModel(t, store, nil)

	m, _ = press(t, m, runes("j"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = settle(t, m, cmd)

	if !m.Items[1].IsDone() {
		t.Fatalf("expected %s done", m.Items[1].Identity)
	}
	for i, o := range m.Items {
		if i != 1 && o.IsDone() {
			t.Fatalf("unexpected done occurrence %s", o.Identity)
		}
	}
	if !strings.HasPrefix(m.Status.Text, "done:") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m, cmd = press(t, m, runes("x"))
	m = settle(t, m, cmd)
	if m.Items[1].IsDone() {
		t.Fatal("expected occurrence reopened")
	}
}

func TestPaletteDoneByRowAndUndoByIdentity(t *testing.T) {
	store := completion.NewMemoryStore()
	m := newModel(t, store, nil)

	m, cmd := palette(t, m, "done 2")
	m = settle(t, m, cmd)
	key := identity.Key("standup_2024-01-01")
	got, err := store.CompletionMap(context.Background(), "standup")
	if err != nil {
		t.Fatalf("completion map: %v", err)
	}
	if !got[key].Completed {
		t.Fatalf("expected %s completed, got %+v", key, got)
	}

	m, cmd = palette(t, m, "undo standup_2024-01-01")
	m = settle(t, m, cmd)
	got, _ = store.CompletionMap(context.Background(), "standup")
	if got[key].Completed {
		t.Fatal("expected completion cleared")
	}
	if m.Palette.Active {
		t.Fatal("expected palette closed after submit")
	}
}

func TestPaletteRejectsUnknownTargets(t *testing.T) {
	m := newModel(t, completion.NewMemoryStore(), nil)
	for _, input := range []string{"done 42", "done standup_2025-01-01", "undo nonsense", "launch rockets"} {
		next, cmd := palette(t, m, input)
		if cmd != nil {
			t.Fatalf("%q: expected no follow-up command", input)
		}
		if !next.Status.IsError {
			t.Fatalf("%q: expected error status, got %+v", input, next.Status)
		}
	}
}

func TestNonRecurringToggleIsRefused(t *testing.T) {
	m := newModel(t, completion.NewMemoryStore(), nil)
	m, cmd := palette(t, m, "done 6")
	next, _ := m.Update(cmd())
	m = next.(Model)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "does not repeat") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestNavigationAndFilters(t *testing.T) {
	m := newModel(t, completion.NewMemoryStore(), nil)

	m, cmd := palette(t, m, "show next tag:work")
	if cmd == nil || !m.Loading {
		t.Fatal("expected reload after show")
	}
	m = loaded(t, m)
	if got := m.Window.Start.Format(time.DateOnly); got != "2024-01-07" {
		t.Fatalf("expected next week, got %s", got)
	}
	if len(m.Items) != 7 || m.Tag != "work" {
		t.Fatalf("expected 7 work items, got %d tag=%q", len(m.Items), m.Tag)
	}

	m, _ = palette(t, m, "goto 2024-01-03")
	m = loaded(t, m)
	if m.Window.Start.Format(time.DateOnly) != "2023-12-31" || m.Cursor != 3 {
		t.Fatalf("expected cursor on 2024-01-03, window=%v cursor=%d", m.Window, m.Cursor)
	}

	m, _ = palette(t, m, "show week")
	m = loaded(t, m)
	m, _ = palette(t, m, "find dent")
	if len(m.Items) != 1 || m.Items[0].TemplateID != "dentist" {
		t.Fatalf("expected dentist only, got %d items", len(m.Items))
	}

	m, _ = press(t, m, runes("l"))
	m = loaded(t, m)
	if m.Window.Start.Format(time.DateOnly) != "2024-01-07" || len(m.Items) != 0 {
		t.Fatalf("expected empty next week under filter, got %d", len(m.Items))
	}
}

func TestReadFailureKeepsAgendaVisible(t *testing.T) {
	m := newModel(t, offlineStore{Store: completion.NewMemoryStore()}, nil)
	if len(m.Items) != 8 {
		t.Fatalf("expected occurrences despite read failure, got %d", len(m.Items))
	}
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "completion state unavailable") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestTemplateListFailureIsReported(t *testing.T) {
	svc, err := occurrence.NewService(completion.NewMemoryStore(), occurrence.Config{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	m, err := New(Options{Templates: fakeTemplates{err: errors.New("locked")}, Service: svc, Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m = loaded(t, m)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "locked") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestDueEventNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	m := newModel(t, completion.NewMemoryStore(), notifier)
	updated, _ := m.Update(DueMsg{Event: scheduler.DueEvent{
		ID:         "standup_2024-01-03",
		TemplateID: "standup",
		Title:      "Standup",
		DueAt:      time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
	}})
	m = updated.(Model)
	if len(m.Notifications) != 1 || len(notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d/%d", len(m.Notifications), len(notifier.sent))
	}
	if notifier.sent[0].Body != "Standup at 09:00" {
		t.Fatalf("unexpected body: %q", notifier.sent[0].Body)
	}
}

func TestDetailPaneShowsRule(t *testing.T) {
	m := newModel(t, completion.NewMemoryStore(), nil)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Detail {
		t.Fatal("expected detail pane open")
	}
	if !strings.Contains(ansi.Strip(m.detailView.View()), "every day") {
		t.Fatalf("expected rule in detail pane:\n%s", m.detailView.View())
	}
}

func TestWatcherRelevance(t *testing.T) {
	watched := map[string]bool{"taskboard.db": true, "completions.yaml": true}
	cases := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/data/taskboard.db-wal", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/data/completions.yaml", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/data/config.yaml", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/data/taskboard.db", Op: fsnotify.Chmod}, false},
	}
	for _, tc := range cases {
		if got := relevant(tc.event, watched); got != tc.want {
			t.Fatalf("relevant(%v) = %v, want %v", tc.event, got, tc.want)
		}
	}
}
