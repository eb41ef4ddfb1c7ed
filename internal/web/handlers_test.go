package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

type mockTemplates struct {
	items   []model.TaskTemplate
	listErr error
}

func (m *mockTemplates) GetTemplate(_ context.Context, id string) (model.TaskTemplate, error) {
	for _, t := range m.items {
		if t.ID == id {
			return t, nil
		}
	}
	return model.TaskTemplate{}, storage.ErrNotFound
}

func (m *mockTemplates) ListTemplates(_ context.Context, filter storage.TaskListFilter) ([]model.TaskTemplate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if filter.Recurring == nil {
		return m.items, nil
	}
	var out []model.TaskTemplate
	for _, t := range m.items {
		if t.IsRecurring() == *filter.Recurring {
			out = append(out, t)
		}
	}
	return out, nil
}

type brokenStore struct{}

func (brokenStore) CompletionMap(context.Context, string) (completion.Map, error) {
	return nil, &completion.StoreError{Op: "read", Err: errors.New("offline")}
}

func (brokenStore) SetCompletion(_ context.Context, key identity.Key, _ bool) error {
	return &completion.StoreError{Op: "write", Key: string(key), Err: errors.New("offline")}
}

func standup() model.TaskTemplate {
	return model.TaskTemplate{
		ID:            "tmpl-standup",
		Title:         "Standup",
		Status:        model.StatusDone,
		Priority:      model.PriorityMedium,
		ScheduledDate: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: &model.RecurrenceRule{
			Pattern:    model.PatternWeekly,
			Interval:   2,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
		},
		CreatedAt: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, store completion.Store, templates *mockTemplates) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := occurrence.NewService(store, occurrence.Config{})
	require.NoError(t, err)
	s := NewServer(templates, svc, time.UTC)
	s.now = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeWindow(t *testing.T, rec *httptest.ResponseRecorder) windowJSON {
	t.Helper()
	var out windowJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{})
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTemplateOccurrencesScenarioB(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{items: []model.TaskTemplate{standup()}})
	rec := do(t, s, http.MethodGet, "/api/templates/tmpl-standup/occurrences?from=2024-01-01&to=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeWindow(t, rec)
	var ids []string
	for _, o := range got.Occurrences {
		ids = append(ids, o.Identity)
		assert.Equal(t, "backlog", o.Status, "template-level done must not leak into %s", o.Identity)
	}
	assert.Equal(t, []string{
		"tmpl-standup_2024-01-01",
		"tmpl-standup_2024-01-03",
		"tmpl-standup_2024-01-15",
		"tmpl-standup_2024-01-17",
		"tmpl-standup_2024-01-29",
		"tmpl-standup_2024-01-31",
	}, ids)
	assert.Empty(t, got.SyncError)
}

func TestTemplateOccurrencesNotFound(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{})
	rec := do(t, s, http.MethodGet, "/api/templates/missing/occurrences", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWindowValidation(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{})
	for _, target := range []string{
		"/api/occurrences?from=2024-01-10",
		"/api/occurrences?from=2024-01-10&to=2024-01-01",
		"/api/occurrences?from=yesterday&to=today",
		"/api/occurrences?from=2000-01-01&to=2024-01-01",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestWindowDefaultsToCurrentWeek(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{items: []model.TaskTemplate{standup()}})
	rec := do(t, s, http.MethodGet, "/api/occurrences", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeWindow(t, rec)
	assert.Equal(t, "2023-12-31", got.From)
	assert.Equal(t, "2024-01-06", got.To)
	assert.Len(t, got.Occurrences, 2)
}

func TestSetCompletionRoundTrip(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{items: []model.TaskTemplate{standup()}})

	rec := do(t, s, http.MethodPut, "/api/completions/tmpl-standup_2024-01-03", `{"completed": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"identity":"tmpl-standup_2024-01-03","completed":true}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/occurrences?from=2024-01-01&to=2024-01-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeWindow(t, rec)
	require.Len(t, got.Occurrences, 2)
	assert.Equal(t, "backlog", got.Occurrences[0].Status)
	assert.Equal(t, "done", got.Occurrences[1].Status)
	assert.Equal(t, 100, got.Occurrences[1].ProgressPercentage)
	assert.NotNil(t, got.Occurrences[1].CompletedAt)
}

func TestSetCompletionRejectsBadInput(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{})

	rec := do(t, s, http.MethodPut, "/api/completions/not-a-key", `{"completed": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/completions/tmpl-standup_2024-01-03", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetCompletionChecksTheOccurrence(t *testing.T) {
	oneOff := standup()
	oneOff.ID = "tmpl-once"
	oneOff.Recurrence = nil
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{items: []model.TaskTemplate{standup(), oneOff}})

	rec := do(t, s, http.MethodPut, "/api/completions/tmpl-standup_2024-01-02", `{"completed": true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "tuesday is not a standup day")

	rec = do(t, s, http.MethodPut, "/api/completions/tmpl-once_2024-01-01", `{"completed": true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/completions/tmpl-missing_2024-01-01", `{"completed": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWindowFilters(t *testing.T) {
	tagged := standup()
	tagged.ID = "tmpl-gym"
	tagged.Title = "Gym"
	tagged.Tags = []string{"Health"}
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{items: []model.TaskTemplate{standup(), tagged}})

	rec := do(t, s, http.MethodGet, "/api/occurrences?from=2024-01-01&to=2024-01-07&tag=health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeWindow(t, rec)
	require.Len(t, got.Occurrences, 2)
	assert.Equal(t, "tmpl-gym", got.Occurrences[0].TemplateID)

	rec = do(t, s, http.MethodGet, "/api/occurrences?from=2024-01-01&to=2024-01-07&q=STAND", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeWindow(t, rec).Occurrences, 2)
}

func TestStoreFailuresAreSurfaced(t *testing.T) {
	s := newTestServer(t, brokenStore{}, &mockTemplates{items: []model.TaskTemplate{standup()}})

	rec := do(t, s, http.MethodGet, "/api/occurrences?from=2024-01-01&to=2024-01-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeWindow(t, rec)
	assert.Len(t, got.Occurrences, 2)
	assert.Contains(t, got.SyncError, "offline")

	rec = do(t, s, http.MethodPut, "/api/completions/tmpl-standup_2024-01-03", `{"completed": false}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "sync_error")
}

func TestListFailureIsServerError(t *testing.T) {
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{listErr: errors.New("db gone")})
	rec := do(t, s, http.MethodGet, "/api/occurrences", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCalendarFeeds(t *testing.T) {
	oneOff := standup()
	oneOff.ID = "tmpl-once"
	oneOff.Recurrence = nil
	s := newTestServer(t, completion.NewMemoryStore(), &mockTemplates{items: []model.TaskTemplate{standup(), oneOff}})

	rec := do(t, s, http.MethodGet, "/api/calendar.ics?from=2024-01-01&to=2024-01-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	body := rec.Body.String()
	assert.Contains(t, body, "UID:tmpl-standup_2024-01-01")
	assert.Contains(t, body, "UID:tmpl-standup_2024-01-03")
	assert.Contains(t, body, "UID:tmpl-once_2024-01-01")

	rec = do(t, s, http.MethodGet, "/api/templates.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "RRULE:")
	assert.NotContains(t, body, "tmpl-once")
}
