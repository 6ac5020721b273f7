// Package insight mines session history for actionable taxonomy
// corrections and records every human resolution as feedback.
package insight

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"focal/internal/store"
)

type Kind string

const (
	KindCategory Kind = "category"
	KindProject  Kind = "project"
	KindPattern  Kind = "pattern"
	KindRole     Kind = "role"
)

// Action pairs a human-readable label with the mutation it performs.
type Action struct {
	Label  string
	Change Change
}

// Insight is a derived, actionable observation about historical sessions.
type Insight struct {
	Kind       Kind
	Title      string
	Detail     string
	Confidence float64
	TargetKind store.TargetKind
	TargetID   *int64
	TargetName string
	Actions    []Action
}

// Report is one batch-analysis run.
type Report struct {
	Insights           []Insight
	Summary            string
	SessionsAnalyzed   int
	CoveragePercentage float64
}

type Engine struct {
	store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Generate analyzes sessions from the last windowDays (default 7). The four
// families run over the same session set and the combined result is sorted
// by confidence descending with generation order as the stable tie-break,
// so re-running over unchanged data yields the same report. Not safe for
// concurrent invocation against the same window.
func (e *Engine) Generate(windowDays int, now time.Time) (*Report, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	from := now.AddDate(0, 0, -windowDays)
	sessions, err := e.store.ListSessions(store.SessionFilter{From: &from, To: &now})
	if err != nil {
		return nil, err
	}

	projects, err := e.store.ListProjects(false)
	if err != nil {
		return nil, err
	}
	roles, err := e.store.ListRoles(true)
	if err != nil {
		return nil, err
	}

	var insights []Insight
	insights = append(insights, categoryInsights(sessions)...)
	insights = append(insights, projectInsights(sessions, projects)...)
	insights = append(insights, patternInsights(sessions, projects)...)
	insights = append(insights, roleInsights(sessions, projects, roles)...)

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})

	categorized := 0
	for _, s := range sessions {
		if s.CategoryID != nil {
			categorized++
		}
	}
	coverage := 0.0
	if len(sessions) > 0 {
		coverage = float64(categorized) / float64(len(sessions)) * 100
	}

	return &Report{
		Insights:         insights,
		SessionsAnalyzed: len(sessions),
		CoveragePercentage: coverage,
		Summary: fmt.Sprintf("%d insights from %d sessions over %d days (%.0f%% categorized)",
			len(insights), len(sessions), windowDays, coverage),
	}, nil
}

// categoryInsights proposes a bulk category for apps with at least three
// uncategorized sessions, when the app name maps to a known category.
func categoryInsights(sessions []store.Session) []Insight {
	byApp := map[string][]int64{}
	for _, s := range sessions {
		if s.CategoryID == nil && s.AppName != "" {
			byApp[s.AppName] = append(byApp[s.AppName], s.ID)
		}
	}

	apps := make([]string, 0, len(byApp))
	for app := range byApp {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	var out []Insight
	for _, app := range apps {
		ids := byApp[app]
		if len(ids) < 3 {
			continue
		}
		slug := inferCategorySlug(app)
		if slug == "" {
			continue
		}
		confidence := 0.5 + 0.05*float64(len(ids))
		if confidence > 0.9 {
			confidence = 0.9
		}
		out = append(out, Insight{
			Kind:       KindCategory,
			Title:      fmt.Sprintf("Categorize %d %s sessions as %s", len(ids), app, slug),
			Detail:     fmt.Sprintf("%d sessions in %s have no category; the app suggests %q.", len(ids), app, slug),
			Confidence: confidence,
			TargetKind: store.TargetCategory,
			TargetName: slug,
			Actions: []Action{
				{Label: "Apply to all", Change: BulkCategorize{SessionIDs: ids, CategorySlug: slug}},
			},
		})
	}
	return out
}

// projectInsights links or creates projects for sessions that still carry
// only a legacy free-text project name.
func projectInsights(sessions []store.Session, projects []store.Project) []Insight {
	byName := map[string][]int64{}
	for _, s := range sessions {
		if s.ProjectID == nil && s.LegacyProjectName != "" {
			byName[s.LegacyProjectName] = append(byName[s.LegacyProjectName], s.ID)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Insight
	for _, name := range names {
		ids := byName[name]
		if len(ids) < 2 {
			continue
		}

		var linked *store.Project
		lower := strings.ToLower(name)
		for i := range projects {
			pn := strings.ToLower(projects[i].Name)
			if strings.Contains(lower, pn) || strings.Contains(pn, lower) {
				linked = &projects[i]
				break
			}
		}

		if linked != nil {
			id := linked.ID
			out = append(out, Insight{
				Kind:       KindProject,
				Title:      fmt.Sprintf("Link %d %q sessions to project %s", len(ids), name, linked.Name),
				Detail:     fmt.Sprintf("Legacy project name %q resembles existing project %q.", name, linked.Name),
				Confidence: 0.75,
				TargetKind: store.TargetProject,
				TargetID:   &id,
				TargetName: linked.Name,
				Actions: []Action{
					{Label: "Link sessions", Change: BulkAssignProject{SessionIDs: ids, ProjectID: id}},
					{Label: "Add as pattern", Change: AddPattern{ProjectID: id, Pattern: lower}},
				},
			})
		} else {
			out = append(out, Insight{
				Kind:       KindProject,
				Title:      fmt.Sprintf("Create project %q for %d sessions", name, len(ids)),
				Detail:     fmt.Sprintf("%d sessions share the untracked project name %q.", len(ids), name),
				Confidence: 0.65,
				TargetKind: store.TargetProject,
				TargetName: name,
				Actions: []Action{
					{Label: "Create and assign", Change: CreateProject{Name: name, SessionIDs: ids}},
				},
			})
		}
	}
	return out
}

// patternInsights proposes up to two new detection patterns per project,
// extracted from recurring window-title substrings.
func patternInsights(sessions []store.Session, projects []store.Project) []Insight {
	projectByID := map[int64]*store.Project{}
	for i := range projects {
		projectByID[projects[i].ID] = &projects[i]
	}

	titlesByProject := map[int64][]string{}
	for _, s := range sessions {
		if s.ProjectID != nil && s.WindowTitle != "" {
			titlesByProject[*s.ProjectID] = append(titlesByProject[*s.ProjectID], s.WindowTitle)
		}
	}

	ids := make([]int64, 0, len(titlesByProject))
	for id := range titlesByProject {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []Insight
	for _, pid := range ids {
		project := projectByID[pid]
		if project == nil {
			continue
		}
		titles := titlesByProject[pid]

		counts := map[string]int{}
		var order []string
		for _, title := range titles {
			for _, cand := range ExtractCandidates(title) {
				if counts[cand] == 0 {
					order = append(order, cand)
				}
				counts[cand]++
			}
		}

		threshold := len(titles) / 3
		if threshold < 2 {
			threshold = 2
		}

		var kept []string
		for _, cand := range order {
			if counts[cand] < threshold {
				continue
			}
			if hasPattern(project.Patterns, cand) {
				continue
			}
			kept = append(kept, cand)
		}
		sort.SliceStable(kept, func(i, j int) bool { return counts[kept[i]] > counts[kept[j]] })
		if len(kept) > 2 {
			kept = kept[:2]
		}
		if len(kept) == 0 {
			continue
		}

		id := project.ID
		actions := make([]Action, 0, len(kept))
		for _, p := range kept {
			actions = append(actions, Action{
				Label:  fmt.Sprintf("Add pattern %q", p),
				Change: AddPattern{ProjectID: id, Pattern: p},
			})
		}
		out = append(out, Insight{
			Kind:       KindPattern,
			Title:      fmt.Sprintf("New detection patterns for %s", project.Name),
			Detail:     fmt.Sprintf("Recurring substrings %s appear across %d window titles.", strings.Join(kept, ", "), len(titles)),
			Confidence: 0.7,
			TargetKind: store.TargetProject,
			TargetID:   &id,
			TargetName: project.Name,
			Actions:    actions,
		})
	}
	return out
}

// roleInsights proposes a role change when another role's keywords dominate
// a project's recent window titles.
func roleInsights(sessions []store.Session, projects []store.Project, roles []store.Role) []Insight {
	titlesByProject := map[int64][]string{}
	for _, s := range sessions {
		if s.ProjectID != nil {
			titlesByProject[*s.ProjectID] = append(titlesByProject[*s.ProjectID], s.WindowTitle)
		}
	}

	ids := make([]int64, 0, len(titlesByProject))
	for id := range titlesByProject {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	projectByID := map[int64]*store.Project{}
	for i := range projects {
		projectByID[projects[i].ID] = &projects[i]
	}

	var out []Insight
	for _, pid := range ids {
		project := projectByID[pid]
		titles := titlesByProject[pid]
		if project == nil || project.RoleID == nil || len(titles) < 5 {
			continue
		}

		var best *store.Role
		bestScore := 0
		for i := range roles {
			score := roleScore(roles[i].Name, titles)
			if score > bestScore {
				bestScore = score
				best = &roles[i]
			}
		}
		// Real division: with 5 titles the bar is 1.67 hits, not 1.
		if best == nil || best.ID == *project.RoleID || float64(bestScore) < float64(len(titles))/3 {
			continue
		}

		id := project.ID
		out = append(out, Insight{
			Kind:       KindRole,
			Title:      fmt.Sprintf("Move %s to role %s", project.Name, best.Name),
			Detail:     fmt.Sprintf("%d of %d recent titles match %s activity.", bestScore, len(titles), best.Name),
			Confidence: 0.6,
			TargetKind: store.TargetRole,
			TargetID:   &id,
			TargetName: best.Name,
			Actions: []Action{
				{Label: "Change role", Change: ChangeRole{ProjectID: id, NewRoleID: best.ID}},
				{Label: "Keep current role", Change: Dismiss{}},
			},
		})
	}
	return out
}

func hasPattern(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, candidate) {
			return true
		}
	}
	return false
}
