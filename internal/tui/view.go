package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/views"
)

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	title := fmt.Sprintf("%s - %s", m.Window.Start.Format("Mon Jan 2"), m.Window.End.Format("Mon Jan 2 2006"))
	if m.Loading {
		title += " " + m.loadSpinner.View()
	}
	var warnings []string
	if m.Agenda.Truncated {
		warnings = append(warnings, "some templates produced too many occurrences; list truncated")
	}
	if len(m.Agenda.Skipped) > 0 {
		warnings = append(warnings, "skipped: "+strings.Join(m.Agenda.Skipped, ", "))
	}
	left := views.RenderAgenda(views.AgendaData{
		Title:    title,
		Rows:     views.Rows(m.Items),
		Cursor:   m.Cursor,
		Filter:   m.filterLabel(),
		Warnings: warnings,
	})

	var right []string
	if m.Detail {
		right = append(right, m.detailView.View())
	}
	if m.HelpVisible {
		right = append(right, views.RenderHelpPanel(views.HelpPanelData{
			Bindings: []string{"palette: show week|next|prev|<from> <to> [tag:x], done <n>, undo <n>, goto <date>, find <text>"},
			HelpView: m.helpModel.FullHelpView(m.Keys.FullHelp()),
		}))
	}

	status := m.Status.Text
	if m.Palette.Active {
		status = views.RenderCommandPalette(true, m.commandInput.View())
	}

	var notes []string
	for _, n := range m.Notifications {
		notes = append(notes, n.At.In(m.loc).Format("15:04")+" "+views.RenderNotification(n.Level, n.Title+": "+n.Body))
	}

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("taskboard | %s | %d occurrence(s)", m.today().Format(time.DateOnly), len(m.Items)),
		LeftPane:     left,
		RightPane:    strings.Join(right, "\n\n"),
		StatusLine:   status,
		StatusError:  m.Status.IsError && !m.Palette.Active,
		Notification: strings.Join(notes, "\n"),
		Footer:       m.helpModel.ShortHelpView(m.Keys.ShortHelp()),
		Width:        m.width,
	})
}

func (m Model) filterLabel() string {
	var parts []string
	if m.Query != "" {
		parts = append(parts, fmt.Sprintf("%q", m.Query))
	}
	if m.Tag != "" {
		parts = append(parts, "tag:"+m.Tag)
	}
	return strings.Join(parts, " ")
}

// refreshDetail renders the selected occurrence into the detail viewport.
func (m *Model) refreshDetail() {
	if !m.Detail {
		return
	}
	o, ok := m.Selected()
	if !ok {
		m.detailView.SetContent("(no selection)")
		return
	}
	rows := views.Rows([]model.Occurrence{o})
	data := views.DetailData{Row: rows[0], Description: o.Task.Description}
	if t, ok := m.templatesByID[o.TemplateID]; ok {
		data.Rule = views.DescribeRule(t.Recurrence)
	}
	if o.Task.TimeEstimate > 0 {
		data.Estimate = o.Task.TimeEstimate.String()
	}
	if o.Task.CompletedAt != nil {
		data.CompletedAt = o.Task.CompletedAt.In(m.loc).Format("2006-01-02 15:04")
	}
	m.detailView.SetContent(views.RenderMarkdownWidth(views.DetailMarkdown(data), m.detailView.Width))
	m.detailView.GotoTop()
}
