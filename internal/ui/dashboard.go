package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"safeclaw/internal/session"
)

// RefreshInterval is the fallback poll used when no change arrives.
var RefreshInterval = 10 * time.Second

// commandTimeout bounds a lifecycle command issued from the dashboard.
const commandTimeout = 30 * time.Second

// Source yields the live session snapshot.
type Source interface {
	Snapshot(ctx context.Context) []session.Session
}

// Controller issues lifecycle commands for the selected row.
type Controller interface {
	Stop(ctx context.Context, name string) bool
	Start(ctx context.Context, name string) session.Result
	Delete(ctx context.Context, name string) bool
}

// DashboardModel is a live session table. It refreshes on every change
// delivered on the changes channel and on a slow timer.
type DashboardModel struct {
	table      table.Model
	sessions   []session.Session
	source     Source
	control    Controller
	changes    <-chan session.Change
	prefix     string
	status     string
	lastUpdate time.Time
	width      int
	height     int
}

type tickMsg time.Time
type sessionsMsg []session.Session
type changeMsg session.Change
type statusMsg string

// NewDashboardModel builds the model. changes may be nil.
func NewDashboardModel(source Source, control Controller, changes <-chan session.Change, prefix string) DashboardModel {
	columns := []table.Column{
		{Title: "NAME", Width: 20},
		{Title: "STATE", Width: 9},
		{Title: "URL", Width: 28},
		{Title: "VOLUME", Width: 50},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(15),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return DashboardModel{
		table:   t,
		source:  source,
		control: control,
		changes: changes,
		prefix:  prefix,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.waitForChange(), tick())
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(m.width)
		m.table.SetHeight(max(m.height-6, 3))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "enter":
			if s, ok := m.selected(); ok {
				return m, m.startCmd(s.Name)
			}
			return m, nil
		case "s":
			if s, ok := m.selected(); ok {
				return m, m.boolCmd("stop", s.Name, m.control.Stop)
			}
			return m, nil
		case "x":
			if s, ok := m.selected(); ok {
				return m, m.boolCmd("delete", s.Name, m.control.Delete)
			}
			return m, nil
		}

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tick())

	case changeMsg:
		m.status = fmt.Sprintf("%s %s", session.DisplayName(m.prefix, msg.Name), msg.Action)
		return m, tea.Batch(m.refreshCmd(), m.waitForChange())

	case sessionsMsg:
		m.sessions = msg
		m.lastUpdate = time.Now()
		m.updateTableRows()
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, m.refreshCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *DashboardModel) updateTableRows() {
	rows := make([]table.Row, 0, len(m.sessions))
	for _, s := range m.sessions {
		url := "-"
		if s.URL != nil {
			url = *s.URL
		}
		rows = append(rows, table.Row{s.DisplayName, string(s.State), url, s.Volume})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m DashboardModel) selected() (session.Session, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.sessions) {
		return session.Session{}, false
	}
	return m.sessions[i], true
}

func (m DashboardModel) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("SafeClaw sessions") + "\n")
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format(time.Kitchen)
	}
	s.WriteString(subtleStyle.Render(fmt.Sprintf("updated %s  enter start  s stop  x delete  r refresh  q quit", updated)) + "\n\n")

	if len(m.sessions) == 0 && !m.lastUpdate.IsZero() {
		s.WriteString(subtleStyle.Render("no sessions") + "\n")
	} else {
		s.WriteString(m.table.View() + "\n")
	}

	if m.status != "" {
		s.WriteString("\n" + m.status + "\n")
	}
	return s.String()
}

func (m DashboardModel) refreshCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return sessionsMsg(source.Snapshot(ctx))
	}
}

func (m DashboardModel) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		c, ok := <-changes
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func (m DashboardModel) startCmd(name string) tea.Cmd {
	control := m.control
	display := session.DisplayName(m.prefix, name)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res := control.Start(ctx, name)
		switch {
		case !res.Success:
			return statusMsg(errorStyle.Render("start " + display + " failed"))
		case res.URL != "":
			return statusMsg("started " + display + " at " + res.URL)
		default:
			return statusMsg("started " + display)
		}
	}
}

func (m DashboardModel) boolCmd(op, name string, fn func(context.Context, string) bool) tea.Cmd {
	display := session.DisplayName(m.prefix, name)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if !fn(ctx, name) {
			return statusMsg(errorStyle.Render(op + " " + display + " failed"))
		}
		return statusMsg(op + " " + display)
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// StartDashboard runs the dashboard full screen until the user quits.
var StartDashboard = func(m DashboardModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
