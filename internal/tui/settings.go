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
	"github.com/sadopc/timesink/internal/settings"
)

type settingsModel struct {
	svc    *settings.Service
	width  int
	height int

	current    settings.Settings
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	sampling     *string
	idleMin      *string
	retention    *string
	focusStart   *string
	focusEnd     *string
	prompts      *bool
	closeToTray  *bool
	distractions *[]string
}

func newSettingsModel(svc *settings.Service) settingsModel {
	sampling, idleMin, retention := "", "", ""
	focusStart, focusEnd := "", ""
	prompts, tray := true, true
	var distractions []string
	return settingsModel{
		svc:          svc,
		current:      settings.Defaults(),
		sampling:     &sampling,
		idleMin:      &idleMin,
		retention:    &retention,
		focusStart:   &focusStart,
		focusEnd:     &focusEnd,
		prompts:      &prompts,
		closeToTray:  &tray,
		distractions: &distractions,
	}
}

func (m *settingsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type settingsDataMsg struct {
	current settings.Settings
}

func (m settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsDataMsg{current: m.svc.Snapshot()}
	}
}

func (m settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		m.current = msg.current
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return m.showForm()
		}
	}
	return m, nil
}

func (m settingsModel) showForm() (settingsModel, tea.Cmd) {
	s := m.current
	*m.sampling = strconv.Itoa(s.SamplingIntervalSec)
	*m.idleMin = strconv.Itoa(s.IdleThresholdMin)
	*m.retention = strconv.Itoa(s.RetentionDays)
	*m.focusStart = s.FocusStart.String()
	*m.focusEnd = s.FocusEnd.String()
	*m.prompts = s.PromptsEnabled
	*m.closeToTray = s.CloseToTray
	*m.distractions = append([]string(nil), s.DistractionCategories...)

	var catOptions []huh.Option[string]
	for _, c := range rules.DefaultCategories {
		if c == rules.IdleCategory {
			continue
		}
		catOptions = append(catOptions, huh.NewOption(c, c))
	}

	numeric := func(name string, minVal int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s must be a number", name)
			}
			if n < minVal {
				return fmt.Errorf("%s must be at least %d", name, minVal)
			}
			return nil
		}
	}
	clock := func(v string) error {
		_, err := settings.ParseClock(v)
		return err
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Sampling interval (sec)").Value(m.sampling).Validate(numeric("interval", 1)),
			huh.NewInput().Title("Idle threshold (min)").Value(m.idleMin).Validate(numeric("threshold", 0)),
			huh.NewInput().Title("Retention (days, 0 = keep forever)").Value(m.retention).Validate(numeric("retention", 0)),
			huh.NewConfirm().Title("Close to tray").Value(m.closeToTray),
		).Title("Tracking"),
		huh.NewGroup(
			huh.NewConfirm().Title("Focus prompts").Value(m.prompts),
			huh.NewInput().Title("Focus window start (HH:MM)").Value(m.focusStart).Validate(clock),
			huh.NewInput().Title("Focus window end (HH:MM)").Value(m.focusEnd).Validate(clock),
			huh.NewMultiSelect[string]().Title("Distraction categories").
				Options(catOptions...).Value(m.distractions),
		).Title("Focus"),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
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
		m.saveSettings()
		return m, m.refresh()
	}

	return m, cmd
}

// saveSettings parses the validated form values back into a snapshot.
// Non-numeric input never reaches this point; the form rejects it.
func (m settingsModel) saveSettings() {
	s := m.current
	if n, err := strconv.Atoi(*m.sampling); err == nil {
		s.SamplingIntervalSec = n
	}
	if n, err := strconv.Atoi(*m.idleMin); err == nil {
		s.IdleThresholdMin = n
	}
	if n, err := strconv.Atoi(*m.retention); err == nil {
		s.RetentionDays = n
	}
	if c, err := settings.ParseClock(*m.focusStart); err == nil {
		s.FocusStart = c
	}
	if c, err := settings.ParseClock(*m.focusEnd); err == nil {
		s.FocusEnd = c
	}
	s.PromptsEnabled = *m.prompts
	s.CloseToTray = *m.closeToTray
	s.DistractionCategories = append([]string(nil), (*m.distractions)...)
	m.svc.Save(s)
}

func (m settingsModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	s := m.current
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	retention := "keep forever"
	if s.RetentionDays > 0 {
		retention = fmt.Sprintf("%d days", s.RetentionDays)
	}

	lines := []struct{ label, value string }{
		{"Sampling interval", fmt.Sprintf("%d sec", s.SamplingIntervalSec)},
		{"Idle threshold", fmt.Sprintf("%d min", s.IdleThresholdMin)},
		{"Retention", retention},
		{"Close to tray", onOff(s.CloseToTray)},
		{"Focus prompts", onOff(s.PromptsEnabled)},
		{"Focus window", fmt.Sprintf("%s – %s", s.FocusStart, s.FocusEnd)},
		{"Distractions", strings.Join(s.DistractionCategories, ", ")},
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for _, l := range lines {
		label := lipgloss.NewStyle().Width(24).Render(l.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(l.value)))
	}
	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
