package review

import (
	"testing"
	"time"

	"focal/internal/store"
)

func newTestReviewer(t *testing.T) (*Reviewer, *store.Store) {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func newSessionWithSuggestion(t *testing.T, s *store.Store, title string, kind store.SuggestionKind, value string, conf float64) (*store.Session, *store.Suggestion) {
	t.Helper()
	sess, err := s.StartSession("Xcode", title, "", time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	sg, err := s.CreateSuggestion(sess.ID, kind, value, conf, "unsure",
		store.SuggestionContext{AppName: "Xcode", WindowTitle: title})
	if err != nil {
		t.Fatal(err)
	}
	return sess, sg
}

// ============================================================
// Accept
// ============================================================

func TestAcceptProjectSuggestionCreatesProject(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, sg := newSessionWithSuggestion(t, s, "DISP-42: fix crash", store.SuggestProject, "Dispute Platform", 0.6)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	resolved, _ := s.GetSuggestion(sg.ID)
	if resolved.Status != store.SuggestionAccepted {
		t.Fatalf("expected accepted, got %s", resolved.Status)
	}

	project, _ := s.GetProjectByName("Dispute Platform")
	if project == nil {
		t.Fatal("accepting a project suggestion should create the project")
	}
	if !project.UserConfirmed || project.Confidence != 1.0 {
		t.Fatalf("human-accepted project should be confirmed: %+v", project)
	}

	updated, _ := s.GetSession(sess.ID)
	if updated.ProjectID == nil || *updated.ProjectID != project.ID {
		t.Fatal("session should point at the accepted project")
	}
}

func TestAcceptProjectSuggestionReusesExisting(t *testing.T) {
	r, s := newTestReviewer(t)
	existing, _ := s.CreateProject(&store.Project{Name: "dispute platform", Active: true})
	_, sg := newSessionWithSuggestion(t, s, "DISP-42", store.SuggestProject, "Dispute Platform", 0.6)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	projects, _ := s.ListProjects(false)
	if len(projects) != 1 {
		t.Fatal("case-insensitive name match should reuse, not duplicate")
	}
	confirmed, _ := s.GetProject(existing.ID)
	if !confirmed.UserConfirmed {
		t.Fatal("reused project should be confirmed by the correction")
	}
}

func TestAcceptLearnsWindowTitleAsPattern(t *testing.T) {
	r, s := newTestReviewer(t)
	_, sg := newSessionWithSuggestion(t, s, "DISP-42: Fix Crash", store.SuggestProject, "Dispute Platform", 0.6)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	project, _ := s.GetProjectByName("Dispute Platform")
	if len(project.Patterns) != 1 || project.Patterns[0] != "disp-42: fix crash" {
		t.Fatalf("window title should be learned lowercased: %v", project.Patterns)
	}
}

func TestAcceptShortTitleNotLearned(t *testing.T) {
	r, s := newTestReviewer(t)
	_, sg := newSessionWithSuggestion(t, s, "abc", store.SuggestProject, "Tiny", 0.6)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	project, _ := s.GetProjectByName("Tiny")
	if len(project.Patterns) != 0 {
		t.Fatalf("titles of 5 chars or fewer must not become patterns: %v", project.Patterns)
	}
}

func TestAcceptCategorySuggestion(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, sg := newSessionWithSuggestion(t, s, "standup notes", store.SuggestCategory, "meetings", 0.6)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	cat, _ := s.GetCategoryBySlug("meetings")
	updated, _ := s.GetSession(sess.ID)
	if updated.CategoryID == nil || *updated.CategoryID != cat.ID {
		t.Fatal("session category should follow the accepted suggestion")
	}
}

func TestAcceptCategoryUnknownSlugFails(t *testing.T) {
	r, s := newTestReviewer(t)
	_, sg := newSessionWithSuggestion(t, s, "t", store.SuggestCategory, "no-such-slug", 0.6)

	if err := r.Accept(sg.ID); err == nil {
		t.Fatal("unknown slug should fail rather than invent a category")
	}
	n, _ := s.CountCategories()
	if n != 6 {
		t.Fatal("no category may be created by review")
	}
}

func TestFailedAcceptLeavesSuggestionPending(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, sg := newSessionWithSuggestion(t, s, "t", store.SuggestCategory, "invented-slug", 0.6)

	if err := r.Accept(sg.ID); err == nil {
		t.Fatal("unknown slug should fail")
	}

	// The failed accept must not consume the one-way transition.
	after, _ := s.GetSuggestion(sg.ID)
	if after.Status != store.SuggestionPending {
		t.Fatalf("suggestion should stay pending after a failed accept, got %q", after.Status)
	}
	updated, _ := s.GetSession(sess.ID)
	if updated.CategoryID != nil {
		t.Fatal("session must stay untouched")
	}

	// Still resolvable: the user can reject it instead.
	if err := r.Reject(sg.ID); err != nil {
		t.Fatalf("pending suggestion should remain resolvable: %v", err)
	}
}

func TestFailedModifyLeavesSuggestionPending(t *testing.T) {
	r, s := newTestReviewer(t)
	_, sg := newSessionWithSuggestion(t, s, "t", store.SuggestRole, "Work", 0.6)

	if err := r.Modify(sg.ID, "No Such Role"); err == nil {
		t.Fatal("unknown role should fail")
	}

	after, _ := s.GetSuggestion(sg.ID)
	if after.Status != store.SuggestionPending {
		t.Fatalf("suggestion should stay pending after a failed modify, got %q", after.Status)
	}
	if after.UserValue != "" {
		t.Fatalf("no user value may be recorded on failure, got %q", after.UserValue)
	}
}

func TestAcceptRoleSuggestionSetsProjectRole(t *testing.T) {
	r, s := newTestReviewer(t)
	project, _ := s.CreateProject(&store.Project{Name: "P", Active: true})
	sess, _ := s.StartSession("Xcode", "t", "", time.Now().UTC())
	s.SetSessionProject(sess.ID, &project.ID)
	sg, _ := s.CreateSuggestion(sess.ID, store.SuggestRole, "Personal", 0.6, "", store.SuggestionContext{})

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	personal, _ := s.GetRoleByName("Personal")
	updated, _ := s.GetProject(project.ID)
	if updated.RoleID == nil || *updated.RoleID != personal.ID {
		t.Fatal("role correction should land on the session's project")
	}
}

func TestAcceptKeepsAICategorizedFlag(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, sg := newSessionWithSuggestion(t, s, "DISP-42: fix", store.SuggestProject, "Disputes", 0.6)
	cat, _ := s.GetCategoryBySlug("creating")
	s.ApplyCategorization(sess.ID, &cat.ID, nil, 0.6, "", nil)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}

	updated, _ := s.GetSession(sess.ID)
	if !updated.AICategorized {
		t.Fatal("a human-corrected AI categorization stays AI-assisted")
	}
}

// ============================================================
// Reject / Modify
// ============================================================

func TestRejectLeavesEverythingElseUntouched(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, sg := newSessionWithSuggestion(t, s, "t", store.SuggestProject, "Nope", 0.6)

	if err := r.Reject(sg.ID); err != nil {
		t.Fatal(err)
	}

	resolved, _ := s.GetSuggestion(sg.ID)
	if resolved.Status != store.SuggestionRejected {
		t.Fatalf("expected rejected, got %s", resolved.Status)
	}
	if p, _ := s.GetProjectByName("Nope"); p != nil {
		t.Fatal("rejecting must not create the project")
	}
	updated, _ := s.GetSession(sess.ID)
	if updated.ProjectID != nil {
		t.Fatal("rejecting must not touch the session")
	}
}

func TestModifyAppliesUserValue(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, sg := newSessionWithSuggestion(t, s, "DISP-42: fix", store.SuggestProject, "Wrong Name", 0.6)

	if err := r.Modify(sg.ID, "Right Name"); err != nil {
		t.Fatal(err)
	}

	resolved, _ := s.GetSuggestion(sg.ID)
	if resolved.Status != store.SuggestionModified || resolved.UserValue != "Right Name" {
		t.Fatalf("modification not recorded: %+v", resolved)
	}
	if p, _ := s.GetProjectByName("Wrong Name"); p != nil {
		t.Fatal("the suggested value must not be applied")
	}
	right, _ := s.GetProjectByName("Right Name")
	if right == nil {
		t.Fatal("the user's value should be applied")
	}
	updated, _ := s.GetSession(sess.ID)
	if updated.ProjectID == nil || *updated.ProjectID != right.ID {
		t.Fatal("session should carry the corrected project")
	}
}

func TestResolvedSuggestionCannotBeReResolved(t *testing.T) {
	r, s := newTestReviewer(t)
	_, sg := newSessionWithSuggestion(t, s, "t", store.SuggestCategory, "creating", 0.6)

	if err := r.Accept(sg.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.Reject(sg.ID); err == nil {
		t.Fatal("resolved suggestions are final")
	}
	resolved, _ := s.GetSuggestion(sg.ID)
	if resolved.Status != store.SuggestionAccepted {
		t.Fatal("the first resolution must stand")
	}
}

// ============================================================
// Bulk operations
// ============================================================

func TestAcceptAllAbove(t *testing.T) {
	r, s := newTestReviewer(t)
	newSessionWithSuggestion(t, s, "confident one", store.SuggestCategory, "creating", 0.65)
	newSessionWithSuggestion(t, s, "shaky one", store.SuggestCategory, "creating", 0.4)

	n, err := r.AcceptAllAbove(0.6)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 accepted, got %d", n)
	}

	pending, _ := s.ListPendingSuggestions()
	if len(pending) != 1 || pending[0].Confidence != 0.4 {
		t.Fatal("the low-confidence suggestion should stay pending")
	}
}

func TestRejectAllPending(t *testing.T) {
	r, s := newTestReviewer(t)
	newSessionWithSuggestion(t, s, "a", store.SuggestCategory, "creating", 0.5)
	newSessionWithSuggestion(t, s, "b", store.SuggestProject, "X", 0.5)

	n, err := r.RejectAllPending()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rejected, got %d", n)
	}
	remaining, _ := s.CountPendingSuggestions()
	if remaining != 0 {
		t.Fatalf("expected no pending left, got %d", remaining)
	}
}

// ============================================================
// Direct corrections
// ============================================================

func TestApplyCorrectionWithoutSuggestion(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, _ := s.StartSession("Xcode", "DISP-42: fix crash", "", time.Now().UTC())
	project, _ := s.CreateProject(&store.Project{Name: "Disputes", Active: true})
	cat, _ := s.GetCategoryBySlug("creating")

	if err := r.ApplyCorrection(sess.ID, &project.ID, &cat.ID, nil); err != nil {
		t.Fatal(err)
	}

	updated, _ := s.GetSession(sess.ID)
	if updated.ProjectID == nil || updated.CategoryID == nil {
		t.Fatal("correction should set both project and category")
	}
	confirmed, _ := s.GetProject(project.ID)
	if !confirmed.UserConfirmed {
		t.Fatal("corrected project should be confirmed")
	}
	if len(confirmed.Patterns) != 1 {
		t.Fatal("correction should learn the window title")
	}
}

func TestApplyCorrectionRoleWithoutProjectIsNoOp(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, _ := s.StartSession("Xcode", "t", "", time.Now().UTC())
	personal, _ := s.GetRoleByName("Personal")

	// No project on the session and none supplied: nowhere for the role to go.
	if err := r.ApplyCorrection(sess.ID, nil, nil, &personal.ID); err != nil {
		t.Fatal(err)
	}
}

func TestApplyCorrectionDuplicateTitleNotRelearned(t *testing.T) {
	r, s := newTestReviewer(t)
	sess, _ := s.StartSession("Xcode", "DISP-42: fix crash", "", time.Now().UTC())
	project, _ := s.CreateProject(&store.Project{
		Name: "Disputes", Patterns: []string{"disp-42: fix crash"}, Active: true,
	})

	if err := r.ApplyCorrection(sess.ID, &project.ID, nil, nil); err != nil {
		t.Fatal(err)
	}
	updated, _ := s.GetProject(project.ID)
	if len(updated.Patterns) != 1 {
		t.Fatalf("identical title must not duplicate the pattern: %v", updated.Patterns)
	}
}
