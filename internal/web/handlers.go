package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/ics"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

const maxWindowDays = 732

type occurrenceJSON struct {
	Identity           string     `json:"identity"`
	TemplateID         string     `json:"template_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	Tags               []string   `json:"tags,omitempty"`
	ScheduledDate      time.Time  `json:"scheduled_date"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ProgressPercentage int        `json:"progress_percentage"`
	Recurring          bool       `json:"recurring"`
}

type windowJSON struct {
	From        string           `json:"from"`
	To          string           `json:"to"`
	Occurrences []occurrenceJSON `json:"occurrences"`
	Truncated   bool             `json:"truncated"`
	SyncError   string           `json:"sync_error,omitempty"`
	Skipped     []string         `json:"skipped,omitempty"`
}

type completionRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleWindowAll(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	templates, err := s.templates.ListTemplates(c.Request.Context(), storage.TaskListFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	view, err := s.service.WindowAll(c.Request.Context(), templates, w)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	view.Occurrences = occurrence.FilterTag(occurrence.Filter(view.Occurrences, c.Query("q")), c.Query("tag"))
	c.JSON(http.StatusOK, toWindowJSON(view))
}

func (s *Server) handleTemplateWindow(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	tmpl, err := s.templates.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	view, err := s.service.Window(c.Request.Context(), tmpl, w)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toWindowJSON(view))
}

func (s *Server) handleSetCompletion(c *gin.Context) {
	key := identity.Key(c.Param("identity"))
	templateID, err := identity.TemplateID(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"completed\": bool}"})
		return
	}
	tmpl, err := s.templates.GetTemplate(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.service.ToggleOccurrence(c.Request.Context(), tmpl, key, *req.Completed); err != nil {
		var storeErr *completion.StoreError
		if errors.Is(err, occurrence.ErrNotRecurring) || errors.Is(err, occurrence.ErrOutsideRecurrence) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if errors.As(err, &storeErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "sync_error": storeErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": string(key), "completed": *req.Completed})
}

func (s *Server) handleCalendar(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	templates, err := s.templates.ListTemplates(c.Request.Context(), storage.TaskListFilter{})
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	view, err := s.service.WindowAll(c.Request.Context(), templates, w)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	if view.SyncErr != nil {
		c.Header("X-Sync-Error", view.SyncErr.Error())
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics.Export(view.Occurrences, s.now())))
}

func (s *Server) handleTemplateCalendar(c *gin.Context) {
	recurring := true
	templates, err := s.templates.ListTemplates(c.Request.Context(), storage.TaskListFilter{Recurring: &recurring})
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics.ExportTemplates(templates, s.now())))
}

// window reads ?from=&to= (YYYY-MM-DD). Missing values default to the
// current week.
func (s *Server) window(c *gin.Context) (recurrence.Window, bool) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		return recurrence.WeekOf(s.now().In(s.loc)), true
	}
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to must be given together"})
		return recurrence.Window{}, false
	}
	w, err := recurrence.ParseWindow(from, to, s.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return recurrence.Window{}, false
	}
	if w.Days() > maxWindowDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("window spans %d days, limit is %d", w.Days(), maxWindowDays)})
		return recurrence.Window{}, false
	}
	return w, true
}

func toWindowJSON(v occurrence.View) windowJSON {
	out := windowJSON{
		From:        v.Window.Start.Format(time.DateOnly),
		To:          v.Window.End.Format(time.DateOnly),
		Occurrences: make([]occurrenceJSON, 0, len(v.Occurrences)),
		Truncated:   v.Truncated,
		Skipped:     v.Skipped,
	}
	if v.SyncErr != nil {
		out.SyncError = v.SyncErr.Error()
	}
	for _, o := range v.Occurrences {
		out.Occurrences = append(out.Occurrences, toOccurrenceJSON(o))
	}
	return out
}

func toOccurrenceJSON(o model.Occurrence) occurrenceJSON {
	return occurrenceJSON{
		Identity:           string(o.Identity),
		TemplateID:         o.TemplateID,
		Title:              o.Task.Title,
		Description:        o.Task.Description,
		Status:             string(o.Task.Status),
		Priority:           string(o.Task.Priority),
		Tags:               o.Task.Tags,
		ScheduledDate:      o.Task.ScheduledDate,
		CompletedAt:        o.Task.CompletedAt,
		ProgressPercentage: o.Task.ProgressPercentage,
		Recurring:          o.Task.IsRecurring(),
	}
}
