package store

import (
	"fmt"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertClosedSession is a test helper that inserts a completed session.
func insertClosedSession(t *testing.T, s *Store, app, title string, startOffset, durationSecs int) int64 {
	t.Helper()
	now := time.Now().UTC()
	start := now.Add(time.Duration(-startOffset) * time.Second)
	end := start.Add(time.Duration(durationSecs) * time.Second)
	res, err := s.db.Exec(
		`INSERT INTO sessions (start_time, end_time, duration, app_name, window_title, active)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		start.Format(time.RFC3339), end.Format(time.RFC3339), durationSecs, app, title,
	)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/focal.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen — should succeed and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestSeedCategories(t *testing.T) {
	s := newTestStore(t)

	n, err := s.CountCategories()
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("expected 6 seeded categories, got %d", n)
	}

	for _, slug := range []string{"creating", "responding", "meetings", "discovery", "planning", "personal"} {
		c, err := s.GetCategoryBySlug(slug)
		if err != nil {
			t.Fatal(err)
		}
		if c == nil {
			t.Fatalf("missing seeded category %q", slug)
		}
		if !c.BuiltIn {
			t.Fatalf("category %q should be built-in", slug)
		}
	}
}

func TestSeedRoles(t *testing.T) {
	s := newTestStore(t)

	roles, err := s.ListRoles(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 seeded roles, got %d", len(roles))
	}

	work, _ := s.GetRoleByName("Work")
	if work == nil || !work.IsDefault {
		t.Fatal("Work should be the seeded default role")
	}
	personal, _ := s.GetRoleByName("Personal")
	if personal == nil || personal.IsDefault {
		t.Fatal("Personal should not be the default role")
	}
}

func TestSeedIdempotentOnReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/focal.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	n, _ := s2.CountCategories()
	if n != 6 {
		t.Fatalf("reopen duplicated seeds: got %d categories", n)
	}
}

// ============================================================
// Categories
// ============================================================

func TestCreateAndGetCategory(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateCategory("Deep Work", "deep-work", "brain", "#123456", "Focus blocks")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if c.BuiltIn {
		t.Fatal("user category should not be built-in")
	}

	fetched, err := s.GetCategory(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Slug != "deep-work" || fetched.Name != "Deep Work" {
		t.Fatalf("unexpected category: %+v", fetched)
	}
}

func TestGetCategoryBySlugUnknown(t *testing.T) {
	s := newTestStore(t)
	c, err := s.GetCategoryBySlug("nope")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Fatal("unknown slug should return nil, not an invented category")
	}
}

func TestDeleteBuiltInCategoryRefused(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.GetCategoryBySlug("creating")
	if err := s.DeleteCategory(c.ID); err == nil {
		t.Fatal("deleting a built-in category should fail")
	}
	again, _ := s.GetCategoryBySlug("creating")
	if again == nil {
		t.Fatal("built-in category should still exist")
	}
}

func TestDeleteUserCategory(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.CreateCategory("Temp", "temp", "", "#000", "")
	if err := s.DeleteCategory(c.ID); err != nil {
		t.Fatal(err)
	}
	gone, _ := s.GetCategoryBySlug("temp")
	if gone != nil {
		t.Fatal("user category should be deleted")
	}
}

// ============================================================
// Roles
// ============================================================

func TestCreateRoleAndLookupCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateRole("Disputes", "Chargeback work", "#222", "shield")
	if err != nil {
		t.Fatal(err)
	}

	r, err := s.GetRoleByName("disputes")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.Name != "Disputes" {
		t.Fatal("role lookup should be case-insensitive")
	}
	if !r.UserDefined {
		t.Fatal("created role should be user-defined")
	}
}

func TestGetRoleByNameUnknown(t *testing.T) {
	s := newTestStore(t)
	r, err := s.GetRoleByName("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Fatal("unknown role name should return nil")
	}
}

func TestDeleteSeededRoleRefused(t *testing.T) {
	s := newTestStore(t)
	work, _ := s.GetRoleByName("Work")
	if err := s.DeleteRole(work.ID); err == nil {
		t.Fatal("deleting a seeded role should fail")
	}
}

func TestDeleteUserRole(t *testing.T) {
	s := newTestStore(t)
	r, _ := s.CreateRole("Side Gig", "", "#333", "")
	if err := s.DeleteRole(r.ID); err != nil {
		t.Fatal(err)
	}
	gone, _ := s.GetRoleByName("Side Gig")
	if gone != nil {
		t.Fatal("user role should be deleted")
	}
}

// ============================================================
// Projects
// ============================================================

func TestCreateProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	p, err := s.CreateProject(&Project{
		Name:        "Dispute Platform",
		Patterns:    []string{"disp-", "chargeback"},
		Active:      true,
		AISuggested: true,
		Confidence:  0.8,
		LastSeen:    &now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if len(p.Patterns) != 2 || p.Patterns[0] != "disp-" {
		t.Fatalf("patterns did not round-trip: %v", p.Patterns)
	}
	if p.LastSeen == nil || !p.LastSeen.Equal(now) {
		t.Fatalf("last seen did not round-trip: %v", p.LastSeen)
	}
}

func TestCreateProjectEmptyPatterns(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject(&Project{Name: "Bare", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if p.Patterns == nil || len(p.Patterns) != 0 {
		t.Fatalf("expected empty non-nil patterns, got %v", p.Patterns)
	}

	// Raw column must hold [] so decoding never degrades on reread.
	var raw string
	s.db.QueryRow(`SELECT patterns FROM projects WHERE id = ?`, p.ID).Scan(&raw)
	if raw != "[]" {
		t.Fatalf("expected stored [], got %q", raw)
	}
}

func TestGetProjectByNameCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	s.CreateProject(&Project{Name: "Scam Reports", Active: true})

	p, err := s.GetProjectByName("scam reports")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Name != "Scam Reports" {
		t.Fatal("name lookup should be case-insensitive")
	}
}

func TestGetProjectByNameUnknown(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetProjectByName("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("unknown project name should return nil")
	}
}

func TestAddProjectDurationAdditive(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject(&Project{Name: "Accrue", Active: true})

	now := time.Now().UTC()
	s.AddProjectDuration(p.ID, 60, now)
	s.AddProjectDuration(p.ID, 90, now)

	updated, _ := s.GetProject(p.ID)
	if updated.TrackedSeconds != 150 {
		t.Fatalf("expected 150 accumulated seconds, got %d", updated.TrackedSeconds)
	}
	if updated.LastSeen == nil {
		t.Fatal("last seen should be set")
	}
}

func TestConfirmProject(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject(&Project{Name: "Tentative", Active: true, AISuggested: true, Confidence: 0.8})

	s.ConfirmProject(p.ID)
	updated, _ := s.GetProject(p.ID)
	if !updated.UserConfirmed {
		t.Fatal("project should be user-confirmed")
	}
	if updated.Confidence != 1.0 {
		t.Fatalf("confirmed project confidence should be 1.0, got %f", updated.Confidence)
	}
}

func TestArchiveProject(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject(&Project{Name: "Old", Active: true})
	s.ArchiveProject(p.ID)

	active, _ := s.ListProjects(true)
	if len(active) != 0 {
		t.Fatal("archived project should be hidden from active list")
	}
	all, _ := s.ListProjects(false)
	if len(all) != 1 || all[0].Active {
		t.Fatal("archived project should appear inactive in the full list")
	}
}

func TestUpdateProjectPatterns(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject(&Project{Name: "Grow", Active: true, Patterns: []string{"one"}})

	s.UpdateProjectPatterns(p.ID, []string{"one", "two"})
	updated, _ := s.GetProject(p.ID)
	if len(updated.Patterns) != 2 || updated.Patterns[1] != "two" {
		t.Fatalf("patterns not updated: %v", updated.Patterns)
	}
}

func TestProjectSessionStats(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject(&Project{Name: "Stats", Active: true})

	id1 := insertClosedSession(t, s, "Xcode", "a", 7200, 3600)
	id2 := insertClosedSession(t, s, "Xcode", "b", 600, 300)
	s.BulkSetProject([]int64{id1, id2}, p.ID)

	total, latest, err := s.ProjectSessionStats(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3900 {
		t.Fatalf("expected 3900s total, got %d", total)
	}
	if latest == nil {
		t.Fatal("expected latest session time")
	}
}

// ============================================================
// Sessions
// ============================================================

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	start := time.Now().UTC().Add(-10 * time.Minute)

	sess, err := s.StartSession("Xcode", "main.swift", "com.apple.dt.Xcode", start)
	if err != nil {
		t.Fatal(err)
	}
	if !sess.Active {
		t.Fatal("new session should be active")
	}

	active, _ := s.ActiveSession()
	if active == nil || active.ID != sess.ID {
		t.Fatal("ActiveSession should return the open session")
	}

	if err := s.TickSession(sess.ID, 120, 2, "AppDelegate.swift"); err != nil {
		t.Fatal(err)
	}
	ticked, _ := s.GetSession(sess.ID)
	if ticked.Duration != 120 || ticked.ScreenshotCount != 2 {
		t.Fatalf("tick not applied: %+v", ticked)
	}
	if ticked.WindowTitle != "AppDelegate.swift" {
		t.Fatal("tick should refresh window title")
	}

	end := start.Add(10 * time.Minute)
	if err := s.CloseSession(sess.ID, end); err != nil {
		t.Fatal(err)
	}
	closed, _ := s.GetSession(sess.ID)
	if closed.Active {
		t.Fatal("closed session should not be active")
	}
	if closed.EndTime == nil {
		t.Fatal("closed session should have end time")
	}
	if closed.Duration != 600 {
		t.Fatalf("expected 600s duration, got %d", closed.Duration)
	}

	active, _ = s.ActiveSession()
	if active != nil {
		t.Fatal("no session should be active after close")
	}
}

func TestActiveSessionNone(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.ActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Fatal("expected nil when no sessions exist")
	}
}

func TestApplyCategorization(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.StartSession("Xcode", "DISP-42", "", time.Now().UTC())
	cat, _ := s.GetCategoryBySlug("creating")
	p, _ := s.CreateProject(&Project{Name: "Dispute Platform", Active: true})

	err := s.ApplyCategorization(sess.ID, &cat.ID, &p.ID, 0.92, "Working on disputes", []string{"ticket DISP-42"})
	if err != nil {
		t.Fatal(err)
	}

	updated, _ := s.GetSession(sess.ID)
	if !updated.AICategorized {
		t.Fatal("session should be marked AI-categorized")
	}
	if updated.CategoryID == nil || *updated.CategoryID != cat.ID {
		t.Fatal("category not applied")
	}
	if updated.ProjectID == nil || *updated.ProjectID != p.ID {
		t.Fatal("project not applied")
	}
	if updated.AIConfidence == nil || *updated.AIConfidence != 0.92 {
		t.Fatal("confidence not applied")
	}
	if len(updated.KeyInsights) != 1 {
		t.Fatalf("key insights did not round-trip: %v", updated.KeyInsights)
	}
}

func TestSetSessionLegacy(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.StartSession("Xcode", "DISP-42", "", time.Now().UTC())

	if err := s.SetSessionLegacy(sess.ID, "coding", "disputes v2"); err != nil {
		t.Fatal(err)
	}

	updated, _ := s.GetSession(sess.ID)
	if updated.LegacyWorkType != "coding" || updated.LegacyProjectName != "disputes v2" {
		t.Fatalf("legacy labels not stored: %+v", updated)
	}
}

func TestListSessionsFilters(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject(&Project{Name: "Filter", Active: true})

	old := insertClosedSession(t, s, "Safari", "old", 72*3600, 600)
	recent := insertClosedSession(t, s, "Xcode", "recent", 600, 300)
	s.BulkSetProject([]int64{recent}, p.ID)
	_ = old

	from := time.Now().UTC().Add(-time.Hour)
	got, err := s.ListSessions(SessionFilter{From: &from})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].AppName != "Xcode" {
		t.Fatalf("time filter failed: %d sessions", len(got))
	}

	got, _ = s.ListSessions(SessionFilter{ProjectID: &p.ID})
	if len(got) != 1 || got[0].ID != recent {
		t.Fatal("project filter failed")
	}

	got, _ = s.ListSessions(SessionFilter{Uncategorized: true})
	if len(got) != 2 {
		t.Fatalf("expected 2 uncategorized sessions, got %d", len(got))
	}
}

func TestBulkSetCategoryTouchesOnlyListed(t *testing.T) {
	s := newTestStore(t)
	cat, _ := s.GetCategoryBySlug("meetings")

	a := insertClosedSession(t, s, "Zoom", "standup", 3600, 1800)
	b := insertClosedSession(t, s, "Zoom", "retro", 1800, 1800)
	c := insertClosedSession(t, s, "Safari", "news", 600, 300)

	if err := s.BulkSetCategory([]int64{a, b}, cat.ID); err != nil {
		t.Fatal(err)
	}

	for _, id := range []int64{a, b} {
		sess, _ := s.GetSession(id)
		if sess.CategoryID == nil || *sess.CategoryID != cat.ID {
			t.Fatalf("session %d should be categorized", id)
		}
	}
	untouched, _ := s.GetSession(c)
	if untouched.CategoryID != nil {
		t.Fatal("unlisted session must not be touched")
	}
}

func TestBulkSetCategoryEmptyList(t *testing.T) {
	s := newTestStore(t)
	if err := s.BulkSetCategory(nil, 1); err != nil {
		t.Fatalf("empty bulk update should be a no-op, got %v", err)
	}
}

func TestCategoryDurations(t *testing.T) {
	s := newTestStore(t)
	cat, _ := s.GetCategoryBySlug("creating")

	a := insertClosedSession(t, s, "Xcode", "a", 3600, 1200)
	insertClosedSession(t, s, "Safari", "b", 1800, 600)
	s.BulkSetCategory([]int64{a}, cat.ID)

	now := time.Now().UTC()
	durations, err := s.CategoryDurations(now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(durations) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(durations))
	}
	// Ordered by total descending
	if durations[0].CategoryName != "Creating" || durations[0].TotalSeconds != 1200 {
		t.Fatalf("unexpected first bucket: %+v", durations[0])
	}
	if durations[1].CategoryName != "Uncategorized" {
		t.Fatalf("expected Uncategorized bucket, got %+v", durations[1])
	}
}

// ============================================================
// Suggestions
// ============================================================

func TestCreateAndListSuggestions(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.StartSession("Xcode", "DISP-42", "", time.Now().UTC())

	sg, err := s.CreateSuggestion(sess.ID, SuggestProject, "Dispute Platform", 0.55, "low confidence",
		SuggestionContext{AppName: "Xcode", WindowTitle: "DISP-42"})
	if err != nil {
		t.Fatal(err)
	}
	if sg.Status != SuggestionPending {
		t.Fatalf("new suggestion should be pending, got %s", sg.Status)
	}
	if sg.Context.AppName != "Xcode" {
		t.Fatal("context did not round-trip")
	}

	pending, _ := s.ListPendingSuggestions()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	n, _ := s.CountPendingSuggestions()
	if n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
}

func TestResolveSuggestionOneWay(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.StartSession("Xcode", "", "", time.Now().UTC())
	sg, _ := s.CreateSuggestion(sess.ID, SuggestCategory, "creating", 0.6, "", SuggestionContext{})

	if err := s.ResolveSuggestion(sg.ID, SuggestionAccepted, ""); err != nil {
		t.Fatal(err)
	}
	resolved, _ := s.GetSuggestion(sg.ID)
	if resolved.Status != SuggestionAccepted || resolved.ResolvedAt == nil {
		t.Fatalf("suggestion not resolved: %+v", resolved)
	}

	// Second resolution must fail and leave the row unchanged.
	if err := s.ResolveSuggestion(sg.ID, SuggestionRejected, ""); err == nil {
		t.Fatal("re-resolving a resolved suggestion should fail")
	}
	again, _ := s.GetSuggestion(sg.ID)
	if again.Status != SuggestionAccepted {
		t.Fatal("resolved status must not change")
	}
}

func TestResolveSuggestionToPendingRefused(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.StartSession("Xcode", "", "", time.Now().UTC())
	sg, _ := s.CreateSuggestion(sess.ID, SuggestRole, "Work", 0.6, "", SuggestionContext{})

	if err := s.ResolveSuggestion(sg.ID, SuggestionPending, ""); err == nil {
		t.Fatal("pending is not a terminal status")
	}
}

func TestResolveSuggestionModifiedKeepsUserValue(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.StartSession("Xcode", "", "", time.Now().UTC())
	sg, _ := s.CreateSuggestion(sess.ID, SuggestProject, "Wrong Name", 0.5, "", SuggestionContext{})

	s.ResolveSuggestion(sg.ID, SuggestionModified, "Right Name")
	resolved, _ := s.GetSuggestion(sg.ID)
	if resolved.UserValue != "Right Name" {
		t.Fatalf("expected user value preserved, got %q", resolved.UserValue)
	}
}

// ============================================================
// Categorization cache
// ============================================================

func TestRecordCachedAndCandidates(t *testing.T) {
	s := newTestStore(t)
	policy := PrunePolicy{MaxAge: 30 * 24 * time.Hour, Capacity: 1000, TargetFraction: 0.8}

	id, err := s.RecordCachedCategorization(&CachedCategorization{
		AppName:      "Xcode",
		WindowTitle:  "DISP-42: fix crash",
		ProjectName:  "Dispute Platform",
		CategorySlug: "creating",
		Patterns:     []string{"disp-"},
		Confidence:   0.9,
	}, policy)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected non-zero cache id")
	}

	candidates, err := s.CachedCandidates("xcode")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("app match should be case-insensitive, got %d rows", len(candidates))
	}
	if candidates[0].Patterns[0] != "disp-" {
		t.Fatal("patterns did not round-trip")
	}
}

func TestCachedCandidatesRankedByUseCount(t *testing.T) {
	s := newTestStore(t)
	policy := PrunePolicy{Capacity: 1000, TargetFraction: 0.8}

	first, _ := s.RecordCachedCategorization(&CachedCategorization{AppName: "Xcode", ProjectName: "A"}, policy)
	second, _ := s.RecordCachedCategorization(&CachedCategorization{AppName: "Xcode", ProjectName: "B"}, policy)

	s.TouchCached(first)
	s.TouchCached(first)
	s.TouchCached(second)

	candidates, _ := s.CachedCandidates("Xcode")
	if candidates[0].ID != first {
		t.Fatal("highest use count should rank first")
	}
	if candidates[0].UseCount != 2 {
		t.Fatalf("expected use count 2, got %d", candidates[0].UseCount)
	}
}

func TestCapacityPruneKeepsTarget(t *testing.T) {
	s := newTestStore(t)
	policy := PrunePolicy{Capacity: 10, TargetFraction: 0.8}

	// Insert one over capacity; the recording transaction prunes down to 8.
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 11; i++ {
		_, err := s.RecordCachedCategorization(&CachedCategorization{
			AppName:     "Xcode",
			WindowTitle: fmt.Sprintf("title-%d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}, policy)
		if err != nil {
			t.Fatal(err)
		}
	}

	n, _ := s.CountCached()
	if n != 8 {
		t.Fatalf("expected 8 rows after prune, got %d", n)
	}

	// Ties on use count break by recency, so the newest rows survive.
	candidates, _ := s.CachedCandidates("Xcode")
	survivors := map[string]bool{}
	for _, c := range candidates {
		survivors[c.WindowTitle] = true
	}
	for i := 0; i < 3; i++ {
		if survivors[fmt.Sprintf("title-%d", i)] {
			t.Fatalf("oldest row title-%d should have been pruned", i)
		}
	}
	if !survivors["title-10"] {
		t.Fatal("newest row should survive the prune")
	}
}

func TestRetentionPrune(t *testing.T) {
	s := newTestStore(t)
	policy := PrunePolicy{MaxAge: 30 * 24 * time.Hour, Capacity: 1000, TargetFraction: 0.8}

	now := time.Now().UTC()
	s.RecordCachedCategorization(&CachedCategorization{
		AppName:   "Old App",
		CreatedAt: now.Add(-31 * 24 * time.Hour),
	}, policy)
	s.RecordCachedCategorization(&CachedCategorization{
		AppName:   "New App",
		CreatedAt: now,
	}, policy)

	if err := s.PruneCache(policy, now); err != nil {
		t.Fatal(err)
	}

	old, _ := s.CachedCandidates("Old App")
	if len(old) != 0 {
		t.Fatal("stale row should be gone after retention prune")
	}
	fresh, _ := s.CachedCandidates("New App")
	if len(fresh) != 1 {
		t.Fatal("fresh row should survive retention prune")
	}
}

func TestUnderCapacityNoPrune(t *testing.T) {
	s := newTestStore(t)
	policy := PrunePolicy{Capacity: 10, TargetFraction: 0.8}

	for i := 0; i < 10; i++ {
		s.RecordCachedCategorization(&CachedCategorization{AppName: "Xcode"}, policy)
	}
	n, _ := s.CountCached()
	if n != 10 {
		t.Fatalf("at-capacity cache should not prune, got %d", n)
	}
}

// ============================================================
// Insight feedback
// ============================================================

func TestInsertAndGetInsightFeedback(t *testing.T) {
	s := newTestStore(t)

	fb, err := s.InsertInsightFeedback(&InsightFeedback{
		InsightKind: "category",
		InsightText: "3 uncategorized Zoom sessions",
		Action:      FeedbackApplied,
		TargetKind:  TargetCategory,
		Changes:     `{"kind":"bulk_categorize","change":{"session_ids":[1],"category_slug":"meetings"}}`,
		Confidence:  0.65,
	})
	if err != nil {
		t.Fatal(err)
	}
	if fb.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	fetched, err := s.GetInsightFeedback(fb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Action != FeedbackApplied || fetched.InsightKind != "category" {
		t.Fatalf("unexpected feedback: %+v", fetched)
	}
}

func TestMarkFeedbackApplied(t *testing.T) {
	s := newTestStore(t)
	fb, _ := s.InsertInsightFeedback(&InsightFeedback{
		InsightKind: "project",
		Action:      FeedbackDeferred,
		TargetKind:  TargetGlobal,
	})
	if fb.AppliedAt != nil {
		t.Fatal("deferred feedback should not be applied yet")
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := s.MarkFeedbackApplied(fb.ID, at); err != nil {
		t.Fatal(err)
	}
	updated, _ := s.GetInsightFeedback(fb.ID)
	if updated.AppliedAt == nil || !updated.AppliedAt.Equal(at) {
		t.Fatal("applied timestamp not recorded")
	}
}

func TestListInsightFeedbackNewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.InsertInsightFeedback(&InsightFeedback{InsightKind: "a", Action: FeedbackDismissed, TargetKind: TargetGlobal})
	s.InsertInsightFeedback(&InsightFeedback{InsightKind: "b", Action: FeedbackDismissed, TargetKind: TargetGlobal})

	list, err := s.ListInsightFeedback(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[0].InsightKind != "b" {
		t.Fatal("feedback should list newest first")
	}

	n, _ := s.CountInsightFeedback()
	if n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}
}
