package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"focal/internal/review"
	"focal/internal/store"
)

type reviewModel struct {
	store     *store.Store
	reviewer  *review.Reviewer
	threshold float64
	width     int
	height    int

	suggestions []store.Suggestion
	cursor      int

	formActive bool
	form       *huh.Form
	formValue  string
	modifyID   int64
}

func newReviewModel(s *store.Store, r *review.Reviewer, threshold float64) reviewModel {
	return reviewModel{
		store:     s,
		reviewer:  r,
		threshold: threshold,
	}
}

func (r *reviewModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r reviewModel) refresh() tea.Cmd {
	return func() tea.Msg {
		suggestions, _ := r.store.ListPendingSuggestions()
		return suggestionsMsg{suggestions: suggestions}
	}
}

func (r reviewModel) update(msg tea.Msg) (reviewModel, tea.Cmd) {
	if r.formActive {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case suggestionsMsg:
		r.suggestions = msg.suggestions
		if r.cursor >= len(r.suggestions) {
			r.cursor = len(r.suggestions) - 1
		}
		if r.cursor < 0 {
			r.cursor = 0
		}
		return r, nil

	case suggestionResolvedMsg:
		return r, tea.Batch(
			r.refresh(),
			func() tea.Msg { return statusMsg{text: msg.text} },
		)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(r.suggestions)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.Accept):
			if sg := r.selected(); sg != nil {
				return r, r.resolve("Accepted", func() error { return r.reviewer.Accept(sg.ID) })
			}
		case key.Matches(msg, keys.Reject):
			if sg := r.selected(); sg != nil {
				return r, r.resolve("Rejected", func() error { return r.reviewer.Reject(sg.ID) })
			}
		case key.Matches(msg, keys.Modify):
			if sg := r.selected(); sg != nil {
				r.startModifyForm(sg)
				return r, r.form.Init()
			}
		case key.Matches(msg, keys.AcceptAll):
			return r, func() tea.Msg {
				n, err := r.reviewer.AcceptAllAbove(r.threshold)
				if err != nil {
					return statusMsg{text: fmt.Sprintf("Accept all: %v", err), isError: true}
				}
				return suggestionResolvedMsg{text: fmt.Sprintf("Accepted %d suggestions", n)}
			}
		case key.Matches(msg, keys.RejectAll):
			return r, func() tea.Msg {
				n, err := r.reviewer.RejectAllPending()
				if err != nil {
					return statusMsg{text: fmt.Sprintf("Reject all: %v", err), isError: true}
				}
				return suggestionResolvedMsg{text: fmt.Sprintf("Rejected %d suggestions", n)}
			}
		}
	}
	return r, nil
}

func (r reviewModel) selected() *store.Suggestion {
	if r.cursor < 0 || r.cursor >= len(r.suggestions) {
		return nil
	}
	return &r.suggestions[r.cursor]
}

func (r reviewModel) resolve(verb string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return statusMsg{text: fmt.Sprintf("%s failed: %v", verb, err), isError: true}
		}
		return suggestionResolvedMsg{text: verb}
	}
}

func (r *reviewModel) startModifyForm(sg *store.Suggestion) {
	r.formActive = true
	r.formValue = sg.Value
	r.modifyID = sg.ID

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Correct %s", sg.Kind)).
				Description("Replace the suggested value with your own").
				Value(&r.formValue),
		),
	)
}

func (r reviewModel) updateForm(msg tea.Msg) (reviewModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, keys.Back) {
		r.formActive = false
		r.form = nil
		return r, nil
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		id := r.modifyID
		value := strings.TrimSpace(r.formValue)
		r.form = nil
		if value == "" {
			return r, nil
		}
		return r, r.resolve("Modified", func() error { return r.reviewer.Modify(id, value) })
	}

	return r, cmd
}

func (r reviewModel) view() string {
	w := r.width - 4

	if r.formActive && r.form != nil {
		return activePanelStyle.Width(w).Render(r.form.View())
	}

	title := titleStyle.Render("Pending Suggestions")
	count := mutedStyle.Render(fmt.Sprintf("(%d)", len(r.suggestions)))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, " ", count)

	var rows []string
	rows = append(rows, header, "")

	if len(r.suggestions) == 0 {
		rows = append(rows, mutedStyle.Render("  Nothing to review"))
	} else {
		for i, sg := range r.suggestions {
			rows = append(rows, r.renderSuggestion(i, sg))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  a: accept  r: reject  m: modify  A: accept all confident  R: reject all"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (r reviewModel) renderSuggestion(i int, sg store.Suggestion) string {
	cursor := "  "
	style := normalItemStyle
	if i == r.cursor {
		cursor = "> "
		style = selectedItemStyle
	}

	conf := fmt.Sprintf("%.0f%%", sg.Confidence*100)
	confStyle := warningStyle
	if sg.Confidence >= r.threshold {
		confStyle = successStyle
	}

	context := sg.Context.AppName
	if sg.Context.WindowTitle != "" {
		context = fmt.Sprintf("%s · %s", sg.Context.AppName, truncate(sg.Context.WindowTitle, 36))
	}

	line := fmt.Sprintf("%s%-12s %-28s %s", cursor, sg.Kind, truncate(sg.Value, 28), confStyle.Render(conf))
	detail := mutedStyle.Render("      " + context)
	if i == r.cursor && sg.Reasoning != "" {
		detail += "\n" + mutedStyle.Render("      "+truncate(sg.Reasoning, 70))
	}
	return style.Render(line) + "\n" + detail
}
