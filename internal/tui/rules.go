package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timesink/internal/rules"
	"github.com/sadopc/timesink/internal/store"
)

type rulesModel struct {
	store  *store.Store
	width  int
	height int

	rules  []rules.Rule
	cursor int

	formActive bool
	form       *huh.Form
	editingID  int64 // 0 = creating

	// Form field pointers (survive value copies)
	formMatchType *string
	formProcess   *string
	formTitle     *string
	formCategory  *string
	formPriority  *string
	formEnabled   *bool
}

func newRulesModel(s *store.Store) rulesModel {
	matchType, process, title := rules.MatchSubstring, "", ""
	category, priority := rules.OtherCategory, "1"
	enabled := true
	return rulesModel{
		store:         s,
		formMatchType: &matchType,
		formProcess:   &process,
		formTitle:     &title,
		formCategory:  &category,
		formPriority:  &priority,
		formEnabled:   &enabled,
	}
}

func (m *rulesModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type rulesDataMsg struct {
	rules []rules.Rule
}

func (m rulesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		rs, _ := m.store.ListRules()
		return rulesDataMsg{rules: rs}
	}
}

func (m rulesModel) update(msg tea.Msg) (rulesModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case rulesDataMsg:
		m.rules = msg.rules
		if m.cursor >= len(m.rules) {
			m.cursor = max(0, len(m.rules)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.rules)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			return m.showForm(nil)
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if len(m.rules) > 0 {
				r := m.rules[m.cursor]
				return m.showForm(&r)
			}
		case key.Matches(msg, keys.Delete):
			if len(m.rules) > 0 {
				m.store.DeleteRule(m.rules[m.cursor].ID)
				return m, m.refresh()
			}
		case key.Matches(msg, keys.Toggle):
			if len(m.rules) > 0 {
				r := m.rules[m.cursor]
				r.Enabled = !r.Enabled
				m.store.UpdateRule(r)
				return m, m.refresh()
			}
		}
	}
	return m, nil
}

func (m rulesModel) showForm(editing *rules.Rule) (rulesModel, tea.Cmd) {
	if editing != nil {
		m.editingID = editing.ID
		*m.formMatchType = editing.MatchType
		*m.formProcess = editing.ProcessPattern
		*m.formTitle = editing.TitlePattern
		*m.formCategory = editing.Category
		*m.formPriority = strconv.Itoa(editing.Priority)
		*m.formEnabled = editing.Enabled
	} else {
		m.editingID = 0
		*m.formMatchType = rules.MatchSubstring
		*m.formProcess = ""
		*m.formTitle = ""
		*m.formCategory = rules.OtherCategory
		*m.formPriority = strconv.Itoa(len(m.rules) + 1)
		*m.formEnabled = true
	}

	catOptions := make([]huh.Option[string], 0, len(rules.DefaultCategories))
	for _, c := range rules.DefaultCategories {
		if c == rules.IdleCategory {
			continue // reserved for idle gaps
		}
		catOptions = append(catOptions, huh.NewOption(c, c))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Match type").
				Options(
					huh.NewOption("Substring", rules.MatchSubstring),
					huh.NewOption("Regex", rules.MatchRegex),
				).Value(m.formMatchType),
			huh.NewInput().Title("Process pattern").Value(m.formProcess),
			huh.NewInput().Title("Title pattern").Value(m.formTitle),
			huh.NewSelect[string]().Title("Category").Options(catOptions...).Value(m.formCategory),
			huh.NewInput().Title("Priority (lower wins)").Value(m.formPriority).
				Validate(func(s string) error {
					if _, err := strconv.Atoi(s); err != nil {
						return fmt.Errorf("priority must be a number")
					}
					return nil
				}),
			huh.NewConfirm().Title("Enabled").Value(m.formEnabled),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m rulesModel) updateForm(msg tea.Msg) (rulesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		priority, _ := strconv.Atoi(*m.formPriority)
		r := rules.Rule{
			ID:             m.editingID,
			Enabled:        *m.formEnabled,
			MatchType:      *m.formMatchType,
			ProcessPattern: strings.TrimSpace(*m.formProcess),
			TitlePattern:   strings.TrimSpace(*m.formTitle),
			Category:       *m.formCategory,
			Priority:       priority,
		}
		if m.editingID == 0 {
			m.store.AddRule(r)
		} else {
			m.store.UpdateRule(r)
		}
		return m, m.refresh()
	}

	return m, cmd
}

func (m rulesModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Rule")
		if m.editingID != 0 {
			title = titleStyle.Render("Edit Rule")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Classification Rules")

	if len(m.rules) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No rules yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-4s %-10s %-20s %-20s %-14s %s",
		"", "Pri", "Match", "Process", "Title", "Category", "On")))

	for i, r := range m.rules {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		dot := lipgloss.NewStyle().Foreground(categoryColor(r.Category)).Render("●")
		enabled := "✓"
		if !r.Enabled {
			enabled = "✗"
		}
		row := style.Render(fmt.Sprintf("%s%s %-4d %-10s %-20s %-20s %-14s %s",
			cursor, dot, r.Priority, r.MatchType,
			truncate(r.ProcessPattern, 20), truncate(r.TitlePattern, 20),
			r.Category, enabled))
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  t: toggle"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
