package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskboard/internal/commands"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m *Model) closePalette() {
	m.Palette = PaletteState{}
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	var follow tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Show: func(a commands.ShowArgs) (commands.Result, error) {
			switch a.Subject {
			case commands.ShowWeek:
				m.Window = recurrence.WeekOf(m.today())
			case commands.ShowNext:
				m.Window = m.Window.Shift(7)
			case commands.ShowPrev:
				m.Window = m.Window.Shift(-7)
			case commands.ShowRange:
				m.Window = recurrence.Window{Start: inLocation(a.From, m.loc), End: inLocation(a.To, m.loc)}
			}
			m.Tag = a.Tag
			m.Cursor = 0
			m.Loading = true
			follow = tea.Batch(m.loadCmd(), m.loadSpinner.Tick)
			msg := fmt.Sprintf("showing %s to %s", m.Window.Start.Format(time.DateOnly), m.Window.End.Format(time.DateOnly))
			if a.Tag != "" {
				msg += " tagged " + a.Tag
			}
			return commands.Result{Message: msg}, nil
		},
		Done: func(a commands.TargetArgs) (commands.Result, error) {
			o, err := m.resolve(a.Target)
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			follow = m.toggleCmd(o, true)
			return commands.Result{Message: "completing " + o.Task.Title}, nil
		},
		Undo: func(a commands.TargetArgs) (commands.Result, error) {
			o, err := m.resolve(a.Target)
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			follow = m.toggleCmd(o, false)
			return commands.Result{Message: "reopening " + o.Task.Title}, nil
		},
		Goto: func(a commands.GotoArgs) (commands.Result, error) {
			day := m.today()
			if !a.Day.IsZero() {
				day = inLocation(a.Day, m.loc)
			}
			m.Window = recurrence.WeekOf(day)
			m.focusDay = day
			m.Cursor = 0
			m.Loading = true
			follow = tea.Batch(m.loadCmd(), m.loadSpinner.Tick)
			return commands.Result{Message: "week of " + m.Window.Start.Format(time.DateOnly)}, nil
		},
		Find: func(a commands.FindArgs) (commands.Result, error) {
			m.Query = a.Query
			m.Cursor = 0
			m.applyFilter()
			m.refreshDetail()
			if a.Query == "" {
				return commands.Result{Message: "filter cleared"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("%d match(es) for %q", len(m.Items), a.Query)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	return m, follow
}

// inLocation reinterprets the calendar date of t in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc)
}
