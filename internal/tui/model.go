// Package tui is the terminal week agenda: it lists the occurrences of every
// template in the visible window and toggles their completion.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

const maxNotifications = 5

type Templates interface {
	ListTemplates(ctx context.Context, filter storage.TaskListFilter) ([]model.TaskTemplate, error)
}

type Options struct {
	Templates Templates
	Service   *occurrence.Service
	// Scheduler, when set, delivers due notifications into the agenda.
	Scheduler *scheduler.Engine
	Notifier  DesktopNotifier
	Location  *time.Location
	Now       func() time.Time
}

type StatusBar struct {
	Text    string
	IsError bool
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type PaletteState struct {
	Active bool
	Input  string
}

type Model struct {
	templates Templates
	service   *occurrence.Service
	engine    *scheduler.Engine
	notifier  DesktopNotifier
	loc       *time.Location
	now       func() time.Time

	Window   recurrence.Window
	Agenda   occurrence.View
	Items    []model.Occurrence
	Cursor   int
	Query    string
	Tag      string
	Loading  bool
	Detail   bool
	Palette  PaletteState
	Status   StatusBar
	Keys     keyMap
	Quitting bool

	HelpVisible   bool
	Notifications []Notification

	// focusDay moves the cursor to the first row on or after it once the
	// next load lands.
	focusDay time.Time
	// templatesByID holds the last loaded templates for the detail pane.
	templatesByID map[string]model.TaskTemplate

	width        int
	commandInput textinput.Model
	helpModel    help.Model
	loadSpinner  spinner.Model
	detailView   viewport.Model
}

type loadedMsg struct {
	View      occurrence.View
	Templates []model.TaskTemplate
	Err       error
}

type toggledMsg struct {
	Identity  string
	Completed bool
	Err       error
}

// ReloadMsg asks the agenda to reload the current window, for example after
// the data directory changed on disk.
type ReloadMsg struct{}

type DueMsg struct {
	Event scheduler.DueEvent
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

func New(opts Options) (Model, error) {
	if opts.Templates == nil || opts.Service == nil {
		return Model{}, errors.New("tui: templates and service are required")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = NoopDesktopNotifier{}
	}

	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "show next | done 3 | goto 2024-05-01 | find gym"
	input.CharLimit = 120

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		templates:     opts.Templates,
		service:       opts.Service,
		engine:        opts.Scheduler,
		notifier:      opts.Notifier,
		loc:           opts.Location,
		now:           opts.Now,
		Keys:          defaultKeyMap(),
		templatesByID: make(map[string]model.TaskTemplate),
		commandInput:  input,
		helpModel:     help.New(),
		loadSpinner:   spin,
		detailView:    viewport.New(50, 14),
	}
	m.Window = recurrence.WeekOf(m.today())
	return m, nil
}

func (m Model) today() time.Time {
	return m.now().In(m.loc)
}

// Selected returns the occurrence under the cursor.
func (m Model) Selected() (model.Occurrence, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Items) {
		return model.Occurrence{}, false
	}
	return m.Items[m.Cursor], true
}
