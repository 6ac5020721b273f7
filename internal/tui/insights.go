package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"focal/internal/insight"
)

type insightsModel struct {
	engine     *insight.Engine
	windowDays int
	width      int
	height     int

	report     *insight.Report
	cursor     int
	generating bool
}

func newInsightsModel(e *insight.Engine, windowDays int) insightsModel {
	return insightsModel{
		engine:     e,
		windowDays: windowDays,
	}
}

func (m *insightsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m insightsModel) generate() tea.Cmd {
	return func() tea.Msg {
		report, err := m.engine.Generate(m.windowDays, time.Now().UTC())
		return insightReportMsg{report: report, err: err}
	}
}

func (m insightsModel) update(msg tea.Msg) (insightsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case insightReportMsg:
		m.generating = false
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Insight generation failed: %v", msg.err), isError: true}
			}
		}
		m.report = msg.report
		m.cursor = 0
		return m, nil

	case insightResolvedMsg:
		m.removeSelected()
		return m, func() tea.Msg { return statusMsg{text: msg.text} }

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.report != nil && m.cursor < len(m.report.Insights)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Generate):
			if !m.generating {
				m.generating = true
				return m, m.generate()
			}
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Accept):
			if ins := m.selected(); ins != nil && len(ins.Actions) > 0 {
				action := ins.Actions[0]
				target := *ins
				return m, func() tea.Msg {
					if _, err := m.engine.Apply(target, action); err != nil {
						return statusMsg{text: fmt.Sprintf("Apply failed: %v", err), isError: true}
					}
					return insightResolvedMsg{text: "Applied: " + action.Label}
				}
			}
		case key.Matches(msg, keys.Dismiss):
			if ins := m.selected(); ins != nil {
				target := *ins
				return m, func() tea.Msg {
					action := insight.Action{Label: "Dismiss", Change: insight.Dismiss{}}
					if _, err := m.engine.Apply(target, action); err != nil {
						return statusMsg{text: fmt.Sprintf("Dismiss failed: %v", err), isError: true}
					}
					return insightResolvedMsg{text: "Dismissed"}
				}
			}
		case key.Matches(msg, keys.Defer):
			if ins := m.selected(); ins != nil {
				target := *ins
				return m, func() tea.Msg {
					if _, err := m.engine.Defer(target); err != nil {
						return statusMsg{text: fmt.Sprintf("Defer failed: %v", err), isError: true}
					}
					return insightResolvedMsg{text: "Deferred"}
				}
			}
		}
	}
	return m, nil
}

func (m insightsModel) selected() *insight.Insight {
	if m.report == nil || m.cursor < 0 || m.cursor >= len(m.report.Insights) {
		return nil
	}
	return &m.report.Insights[m.cursor]
}

func (m *insightsModel) removeSelected() {
	if m.report == nil || m.cursor < 0 || m.cursor >= len(m.report.Insights) {
		return
	}
	m.report.Insights = append(m.report.Insights[:m.cursor], m.report.Insights[m.cursor+1:]...)
	if m.cursor >= len(m.report.Insights) && m.cursor > 0 {
		m.cursor--
	}
}

func (m insightsModel) view() string {
	w := m.width - 4

	var rows []string
	rows = append(rows, titleStyle.Render("Insights"), "")

	switch {
	case m.generating:
		rows = append(rows, warningStyle.Render("  Analyzing sessions..."))
	case m.report == nil:
		rows = append(rows, mutedStyle.Render("  Press g to analyze recent sessions"))
	case len(m.report.Insights) == 0:
		rows = append(rows, mutedStyle.Render("  "+m.report.Summary))
	default:
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %s · %d sessions · %.0f%% categorized",
			m.report.Summary, m.report.SessionsAnalyzed, m.report.CoveragePercentage)))
		rows = append(rows, "")
		for i, ins := range m.report.Insights {
			rows = append(rows, m.renderInsight(i, ins))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  g: generate  enter: apply  d: dismiss  x: defer"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m insightsModel) renderInsight(i int, ins insight.Insight) string {
	cursor := "  "
	style := normalItemStyle
	if i == m.cursor {
		cursor = "> "
		style = selectedItemStyle
	}

	conf := fmt.Sprintf("%.0f%%", ins.Confidence*100)
	line := fmt.Sprintf("%s[%s] %s %s", cursor, ins.Kind, truncate(ins.Title, 52), highlightStyle.Render(conf))

	out := style.Render(line)
	if i == m.cursor {
		out += "\n" + mutedStyle.Render("      "+truncate(ins.Detail, 72))
		if len(ins.Actions) > 0 {
			out += "\n" + accentStyle.Render("      → "+ins.Actions[0].Label)
		}
	}
	return out
}
