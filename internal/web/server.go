// Package web serves the occurrence API and calendar feeds over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

// Templates is the read side of the template store used by the handlers.
type Templates interface {
	GetTemplate(ctx context.Context, id string) (model.TaskTemplate, error)
	ListTemplates(ctx context.Context, filter storage.TaskListFilter) ([]model.TaskTemplate, error)
}

type Server struct {
	templates Templates
	service   *occurrence.Service
	loc       *time.Location
	router    *gin.Engine
	now       func() time.Time
}

func NewServer(templates Templates, service *occurrence.Service, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		templates: templates,
		service:   service,
		loc:       loc,
		router:    router,
		now:       time.Now,
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/occurrences", s.handleWindowAll)
		api.GET("/templates/:id/occurrences", s.handleTemplateWindow)
		api.PUT("/completions/:identity", s.handleSetCompletion)
		api.GET("/calendar.ics", s.handleCalendar)
		api.GET("/templates.ics", s.handleTemplateCalendar)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		kv := []any{"method", c.Request.Method, "path", c.Request.URL.Path, "status", status, "latency", time.Since(start)}
		if status >= http.StatusInternalServerError {
			log.Warn("http request", kv...)
			return
		}
		log.Debug("http request", kv...)
	}
}
