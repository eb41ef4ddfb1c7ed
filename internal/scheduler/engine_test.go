package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
)

func TestEngineEmitsInDueOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if _, err := engine.Schedule(DueEvent{ID: "later", DueAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if _, err := engine.Schedule(DueEvent{ID: "sooner", DueAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}
}

func TestEngineDeduplicatesByID(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	due := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 3; i++ {
		added, err := engine.Schedule(DueEvent{ID: "tmpl-1_2024-01-05", DueAt: due})
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if added != (i == 0) {
			t.Fatalf("attempt %d: added=%v", i, added)
		}
	}
	waitEvent(t, engine.C(), time.Second)

	added, err := engine.Schedule(DueEvent{ID: "tmpl-1_2024-01-05", DueAt: time.Now().Add(10 * time.Millisecond)})
	if err != nil || added {
		t.Fatalf("fired event was rescheduled: added=%v err=%v", added, err)
	}
	select {
	case ev := <-engine.C():
		t.Fatalf("unexpected duplicate delivery: %#v", ev)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestEngineCancelSuppressesDelivery(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	mustSchedule(t, engine, DueEvent{ID: "cancel-me", DueAt: now.Add(20 * time.Millisecond)})
	mustSchedule(t, engine, DueEvent{ID: "keep", DueAt: now.Add(40 * time.Millisecond)})
	if !engine.Cancel("cancel-me") {
		t.Fatal("expected cancel to succeed")
	}
	if engine.Cancel("cancel-me") {
		t.Fatal("second cancel should report false")
	}
	if got := engine.Pending(); got != 1 {
		t.Fatalf("expected 1 pending, got %d", got)
	}

	ev := waitEvent(t, engine.C(), time.Second)
	if ev.ID != "keep" {
		t.Fatalf("cancelled event was delivered: %s", ev.ID)
	}
}

func TestEngineForgetFiredEntries(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	mustSchedule(t, engine, DueEvent{ID: "once", DueAt: time.Now().Add(5 * time.Millisecond)})
	waitEvent(t, engine.C(), time.Second)

	if removed := engine.Forget(time.Now().Add(time.Minute)); removed != 1 {
		t.Fatalf("expected 1 forgotten entry, got %d", removed)
	}
	added, err := engine.Schedule(DueEvent{ID: "once", DueAt: time.Now().Add(5 * time.Millisecond)})
	if err != nil || !added {
		t.Fatalf("expected forgotten id to be schedulable: added=%v err=%v", added, err)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	due := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		mustSchedule(t, engine, DueEvent{ID: identityFor(i), DueAt: due})
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesEvent(t *testing.T) {
	engine := NewEngine(1)
	if _, err := engine.Schedule(DueEvent{ID: "bad"}); !errors.Is(err, ErrInvalidDueTime) {
		t.Fatalf("expected ErrInvalidDueTime, got %v", err)
	}
	if _, err := engine.Schedule(DueEvent{DueAt: time.Now()}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	engine.Start()
	engine.Stop()
	if _, err := engine.Schedule(DueEvent{ID: "late", DueAt: time.Now()}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestPlanDue(t *testing.T) {
	now := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	occ := func(day int, hour int, status model.Status) model.Occurrence {
		at := time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
		return model.Occurrence{
			Task:       model.TaskTemplate{ID: "tmpl-1", Title: "Stretch", Status: status, ScheduledDate: at},
			TemplateID: "tmpl-1",
			Identity:   identity.Make("tmpl-1", at),
		}
	}
	events := PlanDue([]model.Occurrence{
		occ(5, 7, model.StatusTodo),    // already past
		occ(5, 9, model.StatusTodo),    // due
		occ(5, 10, model.StatusDone),   // completed
		occ(6, 7, model.StatusTodo),    // inside 24h
		occ(6, 9, model.StatusBacklog), // beyond horizon
	}, now, 24*time.Hour)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %#v", events)
	}
	if events[0].ID != "tmpl-1_2024-01-05" || events[1].ID != "tmpl-1_2024-01-06" {
		t.Fatalf("unexpected events: %#v", events)
	}
	if events[0].Title != "Stretch" || events[0].TemplateID != "tmpl-1" {
		t.Fatalf("event fields not copied: %#v", events[0])
	}
}

func mustSchedule(t *testing.T, engine *Engine, ev DueEvent) {
	t.Helper()
	if _, err := engine.Schedule(ev); err != nil {
		t.Fatalf("schedule %s: %v", ev.ID, err)
	}
}

func identityFor(i int) string {
	return string(identity.Make("tmpl-drop", time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)))
}

func waitEvent(t *testing.T, ch <-chan DueEvent, timeout time.Duration) DueEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return DueEvent{}
	}
}
