package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timesink/internal/store"
	"github.com/sadopc/timesink/internal/tracker"
)

type dashboardModel struct {
	store  *store.Store
	width  int
	height int

	status         string
	todaySummary   []store.CategorySummary
	topApps        []store.AppSummary
	recentSessions []store.Session
	totalActive    int64
	totalIdle      int64
}

func newDashboardModel(s *store.Store) dashboardModel {
	return dashboardModel{
		store:  s,
		status: tracker.StatusRunning,
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	todaySummary   []store.CategorySummary
	topApps        []store.AppSummary
	recentSessions []store.Session
	totalActive    int64
	totalIdle      int64
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		dayStart, dayEnd := dayRange(time.Now())
		summary, _ := d.store.SummarizeByCategory(dayStart, dayEnd)
		apps, _ := d.store.TopApps(dayStart, dayEnd, 5)
		sessions, _ := d.store.ListSessions(store.SessionFilter{Limit: 5})
		active, _ := d.store.TotalActive(dayStart, dayEnd)
		idleTotal, _ := d.store.TotalIdle(dayStart, dayEnd)

		return dashboardDataMsg{
			todaySummary:   summary,
			topApps:        apps,
			recentSessions: sessions,
			totalActive:    active,
			totalIdle:      idleTotal,
		}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.todaySummary = msg.todaySummary
		d.topApps = msg.topApps
		d.recentSessions = msg.recentSessions
		d.totalActive = msg.totalActive
		d.totalIdle = msg.totalIdle
		return d, nil

	case tracker.StatusChanged:
		d.status = msg.Status
		return d, nil
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	contentWidth := d.width - 4

	statusPanel := d.renderStatusPanel(contentWidth)
	summaryPanel := d.renderSummaryPanel(contentWidth)
	recentPanel := d.renderRecentPanel(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left, statusPanel, summaryPanel, recentPanel)
}

func (d dashboardModel) renderStatusPanel(w int) string {
	var indicator string
	style := panelStyle
	if d.status == tracker.StatusRunning {
		indicator = successStyle.Render("●  TRACKING")
		style = activePanelStyle
	} else {
		indicator = warningStyle.Render("⏸  " + strings.ToUpper(d.status))
	}

	current := mutedStyle.Render("Nothing observed yet")
	if len(d.recentSessions) > 0 {
		s := d.recentSessions[0]
		dot := lipgloss.NewStyle().Foreground(categoryColor(s.Category)).Render("●")
		label := s.ProcessName
		if s.Category == "Idle" {
			label = "Idle"
		}
		current = fmt.Sprintf("%s %s  %s  %s",
			dot,
			highlightStyle.Render(label),
			mutedStyle.Render(truncate(s.WindowTitle, 40)),
			formatSeconds(s.DurationSec),
		)
	}

	totals := fmt.Sprintf("%s active  ·  %s idle today",
		successStyle.Render(formatHours(d.totalActive)),
		mutedStyle.Render(formatHours(d.totalIdle)),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, indicator, "", current, totals)
	return style.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	title := titleStyle.Render("Today by Category")

	if len(d.todaySummary) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No activity recorded today"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	for _, cs := range d.todaySummary {
		dot := lipgloss.NewStyle().Foreground(categoryColor(cs.Category)).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %-16s %s", dot, cs.Category, formatSeconds(cs.TotalSeconds)))
	}

	if len(d.topApps) > 0 {
		rows = append(rows, "")
		rows = append(rows, titleStyle.Render("Top Apps"))
		for _, a := range d.topApps {
			rows = append(rows, fmt.Sprintf("  %-24s %s", truncate(a.ProcessName, 24), formatSeconds(a.TotalSeconds)))
		}
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(d.recentSessions) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	for _, s := range d.recentSessions {
		dot := lipgloss.NewStyle().Foreground(categoryColor(s.Category)).Render("●")
		startStr := s.Start.Local().Format("15:04")
		label := s.ProcessName
		if s.Category == "Idle" {
			label = "(idle)"
		}
		row := fmt.Sprintf("  %s %s  %-18s %-10s %s",
			dot, startStr, truncate(label, 18), s.Category, formatSeconds(s.DurationSec))
		rows = append(rows, row)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
