package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"focal/internal/categorize"
	"focal/internal/classify"
	"focal/internal/store"
)

type dashboardModel struct {
	store       *store.Store
	client      *classify.Client
	categorizer *categorize.Categorizer
	width       int
	height      int

	durations []store.CategoryDuration
	pending   int
	cached    int
	feedback  int
	active    *store.Session
	checking  bool

	chart barchart.Model
}

func newDashboardModel(s *store.Store, client *classify.Client, cat *categorize.Categorizer) dashboardModel {
	return dashboardModel{
		store:       s,
		client:      client,
		categorizer: cat,
		chart:       barchart.New(60, 12),
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		now := time.Now().UTC()
		from := now.AddDate(0, 0, -7)
		durations, _ := d.store.CategoryDurations(from, now)
		pending, _ := d.store.CountPendingSuggestions()
		cached, _ := d.store.CountCached()
		feedback, _ := d.store.CountInsightFeedback()
		active, _ := d.store.ActiveSession()
		return dashboardDataMsg{
			durations: durations,
			pending:   pending,
			cached:    cached,
			feedback:  feedback,
			active:    active,
		}
	}
}

func (d dashboardModel) checkConnection() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_, err := d.client.Describe(ctx, nil)
		return connectionCheckedMsg{err: err}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.durations = msg.durations
		d.pending = msg.pending
		d.cached = msg.cached
		d.feedback = msg.feedback
		d.active = msg.active
		d.buildChart()
		return d, nil

	case connectionCheckedMsg:
		d.checking = false
		if msg.err != nil {
			return d, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Connection failed: %v", msg.err), isError: true}
			}
		}
		return d, func() tea.Msg {
			return statusMsg{text: "Connection OK"}
		}

	case tickMsg:
		return d, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Check) && !d.checking {
			d.checking = true
			return d, d.checkConnection()
		}
	}
	return d, nil
}

func (d *dashboardModel) buildChart() {
	chartWidth := d.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if d.height > 30 {
		chartHeight = 14
	}

	d.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, cd := range d.durations {
		hours := float64(cd.TotalSeconds) / 3600.0
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(cd.Color))
		bars = append(bars, barchart.BarData{
			Label: truncate(cd.CategoryName, 10),
			Values: []barchart.BarValue{
				{Name: cd.CategoryName, Value: hours, Style: style},
			},
		})
	}
	if len(bars) == 0 {
		bars = []barchart.BarData{{
			Label:  "none",
			Values: []barchart.BarValue{{Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}},
		}}
	}

	d.chart.PushAll(bars)
	d.chart.Draw()
}

func (d dashboardModel) view() string {
	w := d.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Last 7 Days"), "  ", d.renderMode(),
	)

	chartView := d.chart.View()
	legend := d.renderLegend()
	stats := d.renderStats()
	session := d.renderActiveSession()
	nav := mutedStyle.Render("  c: check connection  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", legend, "", stats, "", session, "", nav,
		),
	)
}

func (d dashboardModel) renderMode() string {
	if d.checking {
		return warningStyle.Render("◌ checking...")
	}
	if d.categorizer.Offline() {
		return warningStyle.Render("◌ offline (cached)")
	}
	return successStyle.Render("● online")
}

func (d dashboardModel) renderLegend() string {
	var items []string
	for _, cd := range d.durations {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(cd.Color)).Render("●")
		items = append(items, fmt.Sprintf("%s %s %s", dot, cd.CategoryName, formatHours(cd.TotalSeconds)))
	}
	if len(items) == 0 {
		return mutedStyle.Render("  No categorized time yet")
	}
	return "  " + strings.Join(items, "  ")
}

func (d dashboardModel) renderStats() string {
	pending := fmt.Sprintf("%d pending", d.pending)
	if d.pending > 0 {
		pending = warningStyle.Render(pending)
	} else {
		pending = mutedStyle.Render(pending)
	}
	return fmt.Sprintf("  %s %s  %s %s  %s %s",
		titleStyle.Render("Suggestions:"), pending,
		titleStyle.Render("Cached:"), mutedStyle.Render(fmt.Sprintf("%d", d.cached)),
		titleStyle.Render("Feedback:"), mutedStyle.Render(fmt.Sprintf("%d", d.feedback)),
	)
}

func (d dashboardModel) renderActiveSession() string {
	if d.active == nil {
		return mutedStyle.Render("  No active session")
	}
	elapsed := formatSeconds(d.active.Duration)
	title := d.active.WindowTitle
	if title == "" {
		title = d.active.AppName
	}
	return fmt.Sprintf("  %s %s %s",
		successStyle.Render("▶"),
		highlightStyle.Render(truncate(title, 50)),
		mutedStyle.Render(elapsed),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
