package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/jobs"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/web"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run background jobs",
		Long: `Serve the occurrence API and calendar feeds, plan due notifications and
prune old completion records on their cron schedules.

Examples:
  taskboard serve
  taskboard serve --listen :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := scheduler.NewEngine(a.cfg.SchedulerBuffer)
			engine.Start()
			defer engine.Stop()
			go logDue(ctx, engine)

			runner, err := jobs.New(jobs.Config{
				RefreshCron: a.cfg.RefreshCron,
				PruneCron:   a.cfg.PruneCron,
				Horizon:     a.cfg.ReminderHorizon(),
				Retention:   a.cfg.Retention(),
				Location:    a.loc,
			}, a.repo, a.service, engine, a.pruner)
			if err != nil {
				return err
			}
			runner.Start()
			defer func() { <-runner.Stop().Done() }()

			server := web.NewServer(a.repo, a.service, a.loc)
			return server.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "listen address (default from config)")
	return cmd
}

func logDue(ctx context.Context, engine *scheduler.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-engine.C():
			if !ok {
				return
			}
			log.Info("occurrence due", "identity", ev.ID, "title", ev.Title, "at", ev.DueAt)
			if n := engine.Dropped(); n > 0 {
				log.Warn("due notifications dropped", "count", n)
			}
		}
	}
}
