package tui

import (
	"fmt"
	"time"

	"focal/internal/insight"
	"focal/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewReview
	viewInsights
)

var viewNames = []string{"Dashboard", "Review", "Insights"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type dashboardDataMsg struct {
	durations []store.CategoryDuration
	pending   int
	cached    int
	feedback  int
	active    *store.Session
}

type connectionCheckedMsg struct {
	err error
}

type suggestionsMsg struct {
	suggestions []store.Suggestion
}

type suggestionResolvedMsg struct {
	text string
}

type insightReportMsg struct {
	report *insight.Report
	err    error
}

type insightResolvedMsg struct {
	text string
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}
