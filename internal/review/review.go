// Package review resolves pending low-confidence suggestions and records
// direct user corrections, feeding detection patterns back into projects.
package review

import (
	"fmt"
	"strings"
	"time"

	"focal/internal/categorize"
	"focal/internal/store"
)

// minPatternLength guards against learning window titles too short to be
// distinctive.
const minPatternLength = 5

type Reviewer struct {
	store *store.Store
}

func New(s *store.Store) *Reviewer {
	return &Reviewer{store: s}
}

// Accept reflects a suggestion's value into the owning session and, only
// once that succeeded, resolves it as accepted. A failed apply leaves the
// suggestion pending so it stays retryable.
func (r *Reviewer) Accept(id int64) error {
	sg, err := r.store.GetSuggestion(id)
	if err != nil {
		return err
	}
	if sg.Status != store.SuggestionPending {
		return fmt.Errorf("suggestion %d is not pending", id)
	}
	if err := r.apply(sg, sg.Value); err != nil {
		return err
	}
	return r.store.ResolveSuggestion(id, store.SuggestionAccepted, "")
}

// Reject resolves a suggestion without any taxonomy mutation.
func (r *Reviewer) Reject(id int64) error {
	return r.store.ResolveSuggestion(id, store.SuggestionRejected, "")
}

// Modify applies a user-supplied replacement value instead of the suggested
// one, then resolves the suggestion. Apply-before-resolve, same as Accept.
func (r *Reviewer) Modify(id int64, newValue string) error {
	sg, err := r.store.GetSuggestion(id)
	if err != nil {
		return err
	}
	if sg.Status != store.SuggestionPending {
		return fmt.Errorf("suggestion %d is not pending", id)
	}
	if err := r.apply(sg, newValue); err != nil {
		return err
	}
	return r.store.ResolveSuggestion(id, store.SuggestionModified, newValue)
}

// AcceptAllAbove accepts every pending suggestion at or above the
// confidence floor. Same per-item transition, applied in a loop.
func (r *Reviewer) AcceptAllAbove(minConfidence float64) (int, error) {
	pending, err := r.store.ListPendingSuggestions()
	if err != nil {
		return 0, err
	}
	accepted := 0
	for _, sg := range pending {
		if sg.Confidence < minConfidence {
			continue
		}
		if err := r.Accept(sg.ID); err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

// RejectAllPending rejects every pending suggestion.
func (r *Reviewer) RejectAllPending() (int, error) {
	pending, err := r.store.ListPendingSuggestions()
	if err != nil {
		return 0, err
	}
	for _, sg := range pending {
		if err := r.Reject(sg.ID); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

// apply reflects an accepted or modified value into the owning session.
// Project and role outcomes run through the correction path so pattern
// learning happens the same way for every human decision.
func (r *Reviewer) apply(sg *store.Suggestion, value string) error {
	if value == "" {
		return nil
	}

	switch sg.Kind {
	case store.SuggestProject, store.SuggestNewProject:
		project, err := r.matchOrCreateProject(value)
		if err != nil {
			return err
		}
		return r.ApplyCorrection(sg.SessionID, &project.ID, nil, nil)

	case store.SuggestCategory:
		category, err := r.store.GetCategoryBySlug(value)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("unknown category slug %q", value)
		}
		return r.store.SetSessionCategory(sg.SessionID, &category.ID)

	case store.SuggestRole:
		role, err := r.store.GetRoleByName(value)
		if err != nil {
			return err
		}
		if role == nil {
			return fmt.Errorf("unknown role %q", value)
		}
		return r.ApplyCorrection(sg.SessionID, nil, nil, &role.ID)
	}
	return fmt.Errorf("unknown suggestion kind %q", sg.Kind)
}

func (r *Reviewer) matchOrCreateProject(name string) (*store.Project, error) {
	project, err := r.store.GetProjectByName(name)
	if err != nil {
		return nil, err
	}
	if project != nil {
		return project, nil
	}
	now := time.Now().UTC()
	return r.store.CreateProject(&store.Project{
		Name:          name,
		Patterns:      []string{},
		Active:        true,
		AISuggested:   true,
		UserConfirmed: true,
		Confidence:    1.0,
		LastSeen:      &now,
	})
}

// ApplyCorrection is the direct-edit path: it updates the session's
// category/project, confirms a corrected project, learns the window title
// as a detection pattern when it is distinctive, and applies a role
// correction. The session stays flagged AI-categorized - a human-corrected
// AI categorization remains AI-assisted. Available with no open suggestion.
func (r *Reviewer) ApplyCorrection(sessionID int64, projectID, categoryID, roleID *int64) error {
	session, err := r.store.GetSession(sessionID)
	if err != nil {
		return err
	}

	if categoryID != nil {
		if err := r.store.SetSessionCategory(sessionID, categoryID); err != nil {
			return err
		}
	}

	targetProjectID := projectID
	if targetProjectID == nil {
		targetProjectID = session.ProjectID
	}

	if projectID != nil {
		if err := r.store.SetSessionProject(sessionID, projectID); err != nil {
			return err
		}
		project, err := r.store.GetProject(*projectID)
		if err != nil {
			return err
		}
		if title := strings.ToLower(strings.TrimSpace(session.WindowTitle)); len(title) > minPatternLength {
			patterns := categorize.AppendPattern(project.Patterns, title)
			if len(patterns) != len(project.Patterns) {
				if err := r.store.UpdateProjectPatterns(project.ID, patterns); err != nil {
					return err
				}
			}
		}
		if err := r.store.ConfirmProject(project.ID); err != nil {
			return err
		}
	}

	if roleID != nil && targetProjectID != nil {
		if err := r.store.SetProjectRole(*targetProjectID, roleID); err != nil {
			return err
		}
	}
	return nil
}
