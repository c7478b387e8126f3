package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timesink/internal/store"
)

type daySummary struct {
	date       time.Time
	categories []store.CategorySummary
}

type reportsModel struct {
	store  *store.Store
	width  int
	height int

	days   []daySummary
	offset int // 7-day blocks before the current one (0 = current)

	chart barchart.Model
}

func newReportsModel(s *store.Store) reportsModel {
	return reportsModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	days []daySummary
}

func (r reportsModel) refresh() tea.Cmd {
	offset := r.offset
	return func() tea.Msg {
		end := time.Now().UTC().AddDate(0, 0, -7*offset)
		var days []daySummary
		for i := 6; i >= 0; i-- {
			day := end.AddDate(0, 0, -i)
			from, to := dayRange(day)
			cats, _ := r.store.SummarizeByCategory(from, to)
			days = append(days, daySummary{date: from, categories: cats})
		}
		return reportsDataMsg{days: days}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.days = msg.days
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, day := range r.days {
		var values []barchart.BarValue
		for _, cs := range day.categories {
			hours := float64(cs.TotalSeconds) / 3600.0
			values = append(values, barchart.BarValue{
				Name:  cs.Category,
				Value: hours,
				Style: lipgloss.NewStyle().Foreground(categoryColor(cs.Category)),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		bars = append(bars, barchart.BarData{
			Label:  day.date.Format("Mon 02"),
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	var dateLabel string
	if len(r.days) > 0 {
		first := r.days[0].date
		last := r.days[len(r.days)-1].date
		dateLabel = mutedStyle.Render(fmt.Sprintf("%s — %s", first.Format("Jan 02"), last.Format("Jan 02, 2006")))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", dateLabel,
	)

	chartView := r.chart.View()
	tableView := r.renderSummaryTable(w)
	legend := r.renderLegend()
	nav := mutedStyle.Render("  ←/→: navigate weeks")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", legend, "", tableView, "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	totals := make(map[string]int64)
	var order []string
	for _, day := range r.days {
		for _, cs := range day.categories {
			if _, seen := totals[cs.Category]; !seen {
				order = append(order, cs.Category)
			}
			totals[cs.Category] += cs.TotalSeconds
		}
	}
	if len(order) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-18s %10s", "Category", "Total")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 30))))
	for _, cat := range order {
		dot := lipgloss.NewStyle().Foreground(categoryColor(cat)).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %-16s %10s", dot, cat, formatSeconds(totals[cat])))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	seen := make(map[string]bool)
	var items []string
	for _, day := range r.days {
		for _, cs := range day.categories {
			if seen[cs.Category] {
				continue
			}
			seen[cs.Category] = true
			dot := lipgloss.NewStyle().Foreground(categoryColor(cs.Category)).Render("●")
			items = append(items, fmt.Sprintf("%s %s", dot, cs.Category))
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "  " + strings.Join(items, "  ")
}
