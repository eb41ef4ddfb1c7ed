// Package jobs runs the periodic background work: planning due
// notifications and pruning old completion records.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

type TemplateSource interface {
	ListTemplates(ctx context.Context, filter storage.TaskListFilter) ([]model.TaskTemplate, error)
}

type Config struct {
	RefreshCron string
	PruneCron   string
	Horizon     time.Duration
	Retention   time.Duration
	Location    *time.Location
}

type Runner struct {
	cron      *cron.Cron
	cfg       Config
	templates TemplateSource
	service   *occurrence.Service
	engine    *scheduler.Engine
	pruner    completion.Pruner
	now       func() time.Time
}

// New registers the jobs on a cron scheduler. engine and pruner may be nil,
// which disables the matching job.
func New(cfg Config, templates TemplateSource, service *occurrence.Service, engine *scheduler.Engine, pruner completion.Pruner) (*Runner, error) {
	if templates == nil || service == nil {
		return nil, errors.New("jobs: templates and service are required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := cronLogger{}
	r := &Runner{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		cfg:       cfg,
		templates: templates,
		service:   service,
		engine:    engine,
		pruner:    pruner,
		now:       time.Now,
	}

	if engine != nil {
		if _, err := r.cron.AddFunc(cfg.RefreshCron, r.runRefresh); err != nil {
			return nil, fmt.Errorf("jobs: refresh schedule %q: %w", cfg.RefreshCron, err)
		}
	}
	if pruner != nil {
		if _, err := r.cron.AddFunc(cfg.PruneCron, r.runPrune); err != nil {
			return nil, fmt.Errorf("jobs: prune schedule %q: %w", cfg.PruneCron, err)
		}
	}
	return r, nil
}

// SetClock overrides the time source, for tests.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Start runs one refresh immediately and then follows the cron schedule.
func (r *Runner) Start() {
	if r.engine != nil {
		r.runRefresh()
	}
	r.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running jobs
// have finished.
func (r *Runner) Stop() context.Context {
	return r.cron.Stop()
}

// RefreshReminders plans due events for open occurrences inside the horizon
// and cancels pending events whose occurrence has since been completed.
func (r *Runner) RefreshReminders(ctx context.Context) (int, error) {
	if r.engine == nil {
		return 0, nil
	}
	now := r.now().In(r.cfg.Location)
	templates, err := r.templates.ListTemplates(ctx, storage.TaskListFilter{})
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	w := recurrence.Window{Start: now, End: now.Add(r.cfg.Horizon)}
	view, err := r.service.WindowAll(ctx, templates, w)
	if err != nil {
		return 0, err
	}
	if view.SyncErr != nil {
		log.Warn("reminders planned without completion state", "err", view.SyncErr)
	}

	for _, occ := range view.Occurrences {
		if occ.IsDone() {
			r.engine.Cancel(string(occ.Identity))
		}
	}
	scheduled := 0
	for _, ev := range scheduler.PlanDue(view.Occurrences, now, r.cfg.Horizon) {
		added, err := r.engine.Schedule(ev)
		if err != nil {
			return scheduled, err
		}
		if added {
			scheduled++
		}
	}
	r.engine.Forget(now.Add(-24 * time.Hour))
	return scheduled, nil
}

// PruneCompletions removes completion records older than the retention.
func (r *Runner) PruneCompletions(ctx context.Context) (int, error) {
	if r.pruner == nil {
		return 0, nil
	}
	return r.pruner.Prune(ctx, r.now().Add(-r.cfg.Retention))
}

func (r *Runner) runRefresh() {
	n, err := r.RefreshReminders(context.Background())
	if err != nil {
		log.Error("refresh reminders", err)
		return
	}
	log.Info("reminders refreshed", "scheduled", n, "pending", r.engine.Pending())
}

func (r *Runner) runPrune() {
	n, err := r.PruneCompletions(context.Background())
	if err != nil {
		log.Error("prune completions", err)
		return
	}
	log.Info("completions pruned", "removed", n)
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	log.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	log.Error("cron: "+msg, err, kv...)
}
