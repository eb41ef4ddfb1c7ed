package tui

import (
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/sandeepkv93/taskboard/internal/log"
)

const watchDebounce = 250 * time.Millisecond

// Sender is the part of *tea.Program the watcher needs.
type Sender interface {
	Send(msg tea.Msg)
}

// StartWatcher watches dir and sends ReloadMsg when one of the named files
// changes, so edits from another taskboard process show up in the agenda.
// SQLite journal files count as changes to their database.
func StartWatcher(dir string, names []string, program Sender) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	watched := make(map[string]bool, len(names))
	for _, n := range names {
		watched[filepath.Base(n)] = true
	}

	done := make(chan struct{})
	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !relevant(event, watched) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					program.Send(ReloadMsg{})
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("data dir watcher error", "err", err)
			case <-done:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()

	cleanup := func() {
		close(done)
		watcher.Close()
	}
	return cleanup, nil
}

func relevant(event fsnotify.Event, watched map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	for _, suffix := range []string{"-wal", "-journal"} {
		base = strings.TrimSuffix(base, suffix)
	}
	return watched[base]
}
