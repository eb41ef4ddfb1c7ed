package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCmd(), m.loadSpinner.Tick}
	if m.engine != nil {
		cmds = append(cmds, waitForDueCmd(m.engine.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.helpModel.Width = typed.Width
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.loadSpinner, cmd = m.loadSpinner.Update(typed)
		return m, cmd
	case loadedMsg:
		m.Loading = false
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Agenda = typed.View
		m.templatesByID = make(map[string]model.TaskTemplate, len(typed.Templates))
		for _, t := range typed.Templates {
			m.templatesByID[t.ID] = t
		}
		m.applyFilter()
		if !m.focusDay.IsZero() {
			m.moveCursorTo(m.focusDay)
			m.focusDay = time.Time{}
		}
		if typed.View.SyncErr != nil {
			m.Status = StatusBar{Text: "completion state unavailable: " + typed.View.SyncErr.Error(), IsError: true}
		}
		m.refreshDetail()
		return m, nil
	case toggledMsg:
		if typed.Err != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("could not update %s: %v", typed.Identity, typed.Err), IsError: true}
			m.notify("Sync failed", m.Status.Text, "error")
			return m, nil
		}
		verb := "done"
		if !typed.Completed {
			verb = "reopened"
		}
		m.Status = StatusBar{Text: fmt.Sprintf("%s: %s", verb, typed.Identity)}
		return m.reload()
	case ReloadMsg:
		return m.reload()
	case DueMsg:
		m.notify("Due", fmt.Sprintf("%s at %s", typed.Event.Title, typed.Event.DueAt.In(m.loc).Format("15:04")), "info")
		if m.engine != nil {
			return m, waitForDueCmd(m.engine.C())
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Palette):
		m.Palette = PaletteState{Active: true}
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		return m, nil
	case key.Matches(msg, m.Keys.Help):
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
			m.refreshDetail()
		}
		return m, nil
	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
			m.refreshDetail()
		}
		return m, nil
	case key.Matches(msg, m.Keys.Toggle):
		o, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, m.toggleCmd(o, !o.IsDone())
	case key.Matches(msg, m.Keys.Prev):
		return m.setWindow(m.Window.Shift(-7))
	case key.Matches(msg, m.Keys.Next):
		return m.setWindow(m.Window.Shift(7))
	case key.Matches(msg, m.Keys.Today):
		m.focusDay = m.today()
		return m.setWindow(recurrence.WeekOf(m.today()))
	case key.Matches(msg, m.Keys.Detail):
		m.Detail = !m.Detail
		m.refreshDetail()
		return m, nil
	case key.Matches(msg, m.Keys.Reload):
		return m.reload()
	}
	if m.Detail {
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) setWindow(w recurrence.Window) (tea.Model, tea.Cmd) {
	m.Window = w
	m.Cursor = 0
	return m.reload()
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.Loading = true
	return m, tea.Batch(m.loadCmd(), m.loadSpinner.Tick)
}

// loadCmd reads every template and expands it over the current window.
func (m Model) loadCmd() tea.Cmd {
	templates, service, w := m.templates, m.service, m.Window
	return func() tea.Msg {
		ctx := context.Background()
		list, err := templates.ListTemplates(ctx, storage.TaskListFilter{})
		if err != nil {
			return loadedMsg{Err: fmt.Errorf("load templates: %w", err)}
		}
		view, err := service.WindowAll(ctx, list, w)
		if err != nil {
			return loadedMsg{Err: err}
		}
		return loadedMsg{View: view, Templates: list}
	}
}

func (m Model) toggleCmd(o model.Occurrence, completed bool) tea.Cmd {
	service := m.service
	k := o.Identity
	if !o.Task.IsRecurring() {
		return func() tea.Msg {
			return toggledMsg{Identity: k.String(), Completed: completed, Err: fmt.Errorf("%q does not repeat; complete it on the board", o.Task.Title)}
		}
	}
	return func() tea.Msg {
		err := service.Toggle(context.Background(), k, completed)
		if err != nil {
			log.Error("toggle failed", err, "identity", k)
		}
		return toggledMsg{Identity: k.String(), Completed: completed, Err: err}
	}
}

func (m *Model) applyFilter() {
	m.Items = occurrence.FilterTag(occurrence.Filter(m.Agenda.Occurrences, m.Query), m.Tag)
	if m.Cursor >= len(m.Items) {
		m.Cursor = max(len(m.Items)-1, 0)
	}
}

func (m *Model) moveCursorTo(day time.Time) {
	want := day.Format(time.DateOnly)
	for i, o := range m.Items {
		if o.Task.ScheduledDate.Format(time.DateOnly) >= want {
			m.Cursor = i
			return
		}
	}
}

// resolve maps a palette target, a 1-based row or an identity key, to an
// occurrence in the current window.
func (m Model) resolve(target string) (model.Occurrence, error) {
	if row, err := strconv.Atoi(target); err == nil {
		if row < 1 || row > len(m.Items) {
			return model.Occurrence{}, fmt.Errorf("no row %d in the agenda", row)
		}
		return m.Items[row-1], nil
	}
	k := identity.Key(target)
	if _, _, err := identity.Parse(k); err != nil {
		return model.Occurrence{}, err
	}
	if o, ok := occurrence.Lookup(m.Agenda.Occurrences, k); ok {
		return o, nil
	}
	return model.Occurrence{}, fmt.Errorf("%s is not in the visible window", target)
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{Title: title, Body: body, Level: level, At: m.now()}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if err := m.notifier.Send(n); err != nil {
		log.Warn("desktop notification failed", "err", err)
	}
}

func waitForDueCmd(ch <-chan scheduler.DueEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return DueMsg{Event: ev}
	}
}
