// Package scheduler delivers due-occurrence notifications at their scheduled
// time from a single timer goroutine.
package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidDueTime = errors.New("scheduler: invalid due time")
	ErrMissingID      = errors.New("scheduler: event id is required")
	ErrStopped        = errors.New("scheduler: engine stopped")
)

// DueEvent announces that an occurrence has reached its scheduled time. ID is
// the occurrence identity; an ID is delivered at most once per engine.
type DueEvent struct {
	ID         string
	TemplateID string
	Title      string
	DueAt      time.Time
}

type queueItem struct {
	event DueEvent
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].event.DueAt.Before(pq[j].event.DueAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

type idState int

const (
	statePending idState = iota + 1
	stateCancelled
	stateFired
)

type entry struct {
	state idState
	dueAt time.Time
}

type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	ids     map[string]entry
	out     chan DueEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		ids:    make(map[string]entry),
		out:    make(chan DueEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan DueEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues ev. It reports false without error when ev.ID is already
// pending or has fired. A cancelled ID may be scheduled again.
func (e *Engine) Schedule(ev DueEvent) (bool, error) {
	if ev.ID == "" {
		return false, ErrMissingID
	}
	if ev.DueAt.IsZero() {
		return false, ErrInvalidDueTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false, ErrStopped
	}
	switch e.ids[ev.ID].state {
	case statePending, stateFired:
		return false, nil
	case stateCancelled:
		e.ids[ev.ID] = entry{state: statePending, dueAt: e.ids[ev.ID].dueAt}
		return true, nil
	}

	e.ids[ev.ID] = entry{state: statePending, dueAt: ev.DueAt}
	heap.Push(&e.queue, queueItem{event: ev})
	e.signalWakeup()
	return true, nil
}

// Cancel stops a pending event from being delivered, e.g. because its
// occurrence was completed.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.ids[id]
	if cur.state != statePending {
		return false
	}
	e.ids[id] = entry{state: stateCancelled, dueAt: cur.dueAt}
	return true
}

// Pending returns how many events are waiting to fire.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ent := range e.ids {
		if ent.state == statePending {
			n++
		}
	}
	return n
}

// Forget drops the dedupe entries of events that fired before cutoff so a
// long-running process does not grow without bound.
func (e *Engine) Forget(before time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for id, ent := range e.ids {
		if ent.state == stateFired && ent.dueAt.Before(before) {
			delete(e.ids, id)
			removed++
		}
	}
	return removed
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.DueAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now())
			for _, ev := range due {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (DueEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return DueEvent{}, false
	}
	return e.queue[0].event, true
}

func (e *Engine) popDue(now time.Time) []DueEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]DueEvent, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].event
		if next.DueAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		if e.ids[item.event.ID].state != statePending {
			delete(e.ids, item.event.ID)
			continue
		}
		e.ids[item.event.ID] = entry{state: stateFired, dueAt: item.event.DueAt}
		out = append(out, item.event)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
