package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timesink/internal/store"
)

const sessionPageSize = 50

type sessionsModel struct {
	store  *store.Store
	width  int
	height int

	sessions []store.Session
	cursor   int
	dayBack  int // days before today (0 = today)
}

func newSessionsModel(s *store.Store) sessionsModel {
	return sessionsModel{store: s}
}

func (m *sessionsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type sessionsDataMsg struct {
	sessions []store.Session
}

func (m sessionsModel) refresh() tea.Cmd {
	day := time.Now().AddDate(0, 0, -m.dayBack)
	return func() tea.Msg {
		from, to := dayRange(day)
		sessions, _ := m.store.ListSessions(store.SessionFilter{
			From:  &from,
			To:    &to,
			Limit: sessionPageSize,
		})
		return sessionsDataMsg{sessions: sessions}
	}
}

func (m sessionsModel) update(msg tea.Msg) (sessionsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsDataMsg:
		m.sessions = msg.sessions
		if m.cursor >= len(m.sessions) {
			m.cursor = max(0, len(m.sessions)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Left):
			m.dayBack++
			m.cursor = 0
			return m, m.refresh()
		case key.Matches(msg, keys.Right):
			if m.dayBack > 0 {
				m.dayBack--
				m.cursor = 0
			}
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m sessionsModel) view() string {
	w := m.width - 4

	day := time.Now().AddDate(0, 0, -m.dayBack)
	dayLabel := day.Format("Mon Jan 02")
	if m.dayBack == 0 {
		dayLabel = "Today"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Sessions"), "  ", mutedStyle.Render(dayLabel),
	)

	if len(m.sessions) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			mutedStyle.Render("No sessions for this day"),
			"",
			mutedStyle.Render("  ←/→: previous/next day"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, header)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-7s %-18s %-28s %-14s %-10s %s",
		"Start", "Process", "Title", "Category", "Duration", "Intent")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 90))))

	top, end := 0, len(m.sessions)
	if rowsAvail := m.height - 10; rowsAvail > 0 && len(m.sessions) > rowsAvail {
		// Keep the cursor in view on small terminals.
		top = max(0, m.cursor-rowsAvail/2)
		end = min(len(m.sessions), top+rowsAvail)
	}

	for i := top; i < end; i++ {
		s := m.sessions[i]
		style := normalItemStyle
		cursor := "  "
		if i == m.cursor {
			style = selectedItemStyle
			cursor = "> "
		}
		dot := lipgloss.NewStyle().Foreground(categoryColor(s.Category)).Render("●")
		intent := ""
		if s.IntentTag != nil {
			intent = *s.IntentTag
		}
		label := s.ProcessName
		if s.Category == "Idle" {
			label = "(idle)"
		}
		row := fmt.Sprintf("%s%s %-7s %-18s %-28s %-14s %-10s %s",
			cursor, dot,
			s.Start.Local().Format("15:04"),
			truncate(label, 18),
			truncate(s.WindowTitle, 28),
			s.Category,
			formatSeconds(s.DurationSec),
			truncate(intent, 18),
		)
		rows = append(rows, style.Render(row))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  ←/→: previous/next day  x: export"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
