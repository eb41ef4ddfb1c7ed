package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/jobs"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/tui"
)

func runTUI(cmd *cobra.Command, flags *rootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	// The agenda owns the terminal, so log lines go to a file.
	logFile, err := os.OpenFile(a.cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	defer log.SetOutput(os.Stderr)

	engine := scheduler.NewEngine(a.cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	runner, err := jobs.New(jobs.Config{
		RefreshCron: a.cfg.RefreshCron,
		PruneCron:   a.cfg.PruneCron,
		Horizon:     a.cfg.ReminderHorizon(),
		Retention:   a.cfg.Retention(),
		Location:    a.loc,
	}, a.repo, a.service, engine, nil)
	if err != nil {
		return err
	}
	runner.Start()
	defer runner.Stop()

	var notifier tui.DesktopNotifier = tui.NoopDesktopNotifier{}
	if a.cfg.DesktopNotifications {
		notifier = tui.ExecDesktopNotifier{}
	}
	model, err := tui.New(tui.Options{
		Templates: a.repo,
		Service:   a.service,
		Scheduler: engine,
		Notifier:  notifier,
		Location:  a.loc,
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	stopWatch, err := tui.StartWatcher(a.cfg.DataDir, []string{
		filepath.Base(a.cfg.DatabasePath()),
		filepath.Base(a.cfg.CompletionsPath()),
	}, program)
	if err != nil {
		log.Warn("live reload disabled", "err", err)
	} else {
		defer stopWatch()
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("taskboard failed: %w", err)
	}
	return nil
}
