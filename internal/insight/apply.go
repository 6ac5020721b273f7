package insight

import (
	"fmt"
	"time"

	"focal/internal/categorize"
	"focal/internal/store"
)

// Apply executes an insight action's mutation and records the resolution.
// Validation happens before any write, so a bad action commits nothing.
// Dismiss actions record feedback without touching the taxonomy.
func (e *Engine) Apply(ins Insight, action Action) (*store.InsightFeedback, error) {
	if err := e.execute(action.Change); err != nil {
		return nil, err
	}

	feedbackAction := store.FeedbackApplied
	if _, isDismiss := action.Change.(Dismiss); isDismiss {
		feedbackAction = store.FeedbackDismissed
	}
	return e.record(ins, feedbackAction, action.Change)
}

// Defer records the insight for later with no mutation.
func (e *Engine) Defer(ins Insight) (*store.InsightFeedback, error) {
	fb := &store.InsightFeedback{
		InsightKind: string(ins.Kind),
		InsightText: ins.Title,
		Action:      store.FeedbackDeferred,
		TargetKind:  store.TargetGlobal,
		Confidence:  ins.Confidence,
	}
	return e.store.InsertInsightFeedback(fb)
}

// ApplyModified executes a user-edited replacement change and records
// feedback carrying the replacement instead of the original.
func (e *Engine) ApplyModified(ins Insight, replacement Change) (*store.InsightFeedback, error) {
	if err := e.execute(replacement); err != nil {
		return nil, err
	}
	return e.record(ins, store.FeedbackModified, replacement)
}

func (e *Engine) record(ins Insight, action store.FeedbackAction, ch Change) (*store.InsightFeedback, error) {
	changes, err := MarshalChange(ch)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	fb := &store.InsightFeedback{
		InsightKind: string(ins.Kind),
		InsightText: ins.Title,
		Action:      action,
		TargetKind:  ins.TargetKind,
		TargetID:    ins.TargetID,
		TargetName:  ins.TargetName,
		Changes:     changes,
		Confidence:  ins.Confidence,
	}
	if action == store.FeedbackApplied || action == store.FeedbackModified {
		fb.AppliedAt = &now
	}
	return e.store.InsertInsightFeedback(fb)
}

// execute performs the mutation for one change variant. The type switch is
// exhaustive over the closed set.
func (e *Engine) execute(ch Change) error {
	switch v := ch.(type) {
	case BulkCategorize:
		if len(v.SessionIDs) == 0 || v.CategorySlug == "" {
			return fmt.Errorf("bulk categorize: missing session ids or category slug")
		}
		category, err := e.store.GetCategoryBySlug(v.CategorySlug)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("bulk categorize: unknown category slug %q", v.CategorySlug)
		}
		return e.store.BulkSetCategory(v.SessionIDs, category.ID)

	case BulkAssignProject:
		if len(v.SessionIDs) == 0 || v.ProjectID == 0 {
			return fmt.Errorf("bulk assign project: missing session ids or project id")
		}
		if _, err := e.store.GetProject(v.ProjectID); err != nil {
			return err
		}
		return e.store.BulkSetProject(v.SessionIDs, v.ProjectID)

	case AddPattern:
		if v.ProjectID == 0 || v.Pattern == "" {
			return fmt.Errorf("add pattern: missing project id or pattern")
		}
		project, err := e.store.GetProject(v.ProjectID)
		if err != nil {
			return err
		}
		patterns := categorize.AppendPattern(project.Patterns, v.Pattern)
		if len(patterns) == len(project.Patterns) {
			return nil
		}
		return e.store.UpdateProjectPatterns(project.ID, patterns)

	case CreateProject:
		if v.Name == "" {
			return fmt.Errorf("create project: missing name")
		}
		now := time.Now().UTC()
		project, err := e.store.CreateProject(&store.Project{
			Name:          v.Name,
			Patterns:      []string{},
			Active:        true,
			AISuggested:   true,
			UserConfirmed: true,
			Confidence:    1.0,
			LastSeen:      &now,
		})
		if err != nil {
			return err
		}
		if len(v.SessionIDs) == 0 {
			return nil
		}
		return e.store.BulkSetProject(v.SessionIDs, project.ID)

	case ChangeRole:
		if v.ProjectID == 0 || v.NewRoleID == 0 {
			return fmt.Errorf("change role: missing project id or role id")
		}
		if _, err := e.store.GetRole(v.NewRoleID); err != nil {
			return err
		}
		roleID := v.NewRoleID
		return e.store.SetProjectRole(v.ProjectID, &roleID)

	case Dismiss:
		return nil
	}
	return fmt.Errorf("unhandled change kind %q", ch.kind())
}
