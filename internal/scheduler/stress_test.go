package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Overlapping refreshes plan the same occurrences again; each identity must
// be accepted and delivered once.
func TestEngineConcurrentRefreshesDeliverOnce(t *testing.T) {
	engine := NewEngine(1024)
	engine.Start()
	defer engine.Stop()

	const refreshes = 6
	const templates = 25
	const days = 14
	unique := templates * days

	base := time.Now()
	var accepted atomic.Int64
	var wg sync.WaitGroup
	wg.Add(refreshes)
	for range refreshes {
		go func() {
			defer wg.Done()
			for tmpl := range templates {
				for day := range days {
					ev := DueEvent{
						ID:         fmt.Sprintf("tmpl-%d_2024-01-%02d", tmpl, day+1),
						TemplateID: fmt.Sprintf("tmpl-%d", tmpl),
						Title:      "refresh",
						DueAt:      base.Add(time.Duration(day*3+tmpl%5+10) * time.Millisecond),
					}
					ok, err := engine.Schedule(ev)
					if err != nil {
						t.Errorf("schedule %s: %v", ev.ID, err)
						return
					}
					if ok {
						accepted.Add(1)
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := int(accepted.Load()); got != unique {
		t.Fatalf("accepted %d schedules, want %d", got, unique)
	}

	seen := make(map[string]int, unique)
	deadline := time.After(5 * time.Second)
	for len(seen) < unique {
		select {
		case <-deadline:
			t.Fatalf("timeout: delivered=%d want=%d dropped=%d", len(seen), unique, engine.Dropped())
		case ev := <-engine.C():
			seen[ev.ID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("%s delivered %d times", id, n)
		}
	}

	select {
	case ev := <-engine.C():
		t.Fatalf("unexpected extra delivery %s", ev.ID)
	case <-time.After(50 * time.Millisecond):
	}
	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with active consumer, got=%d", engine.Dropped())
	}
}
