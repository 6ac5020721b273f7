// Package categorize orchestrates classification: remote call, offline
// fallback, taxonomy reconciliation, and queueing of low-confidence results
// for review.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"focal/internal/cache"
	"focal/internal/classify"
	"focal/internal/store"
)

// ErrNoCategorization means neither the remote classifier nor the offline
// cache produced a result. The session stays uncategorized.
var ErrNoCategorization = errors.New("no categorization available")

// Classifier is the gateway contract the categorizer depends on.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) (*classify.Categorization, error)
}

type Config struct {
	// ReviewThreshold gates suggestion creation: below it, a result is
	// queued for human review.
	ReviewThreshold float64
	// OfflineDiscount multiplies cached confidence, since a cache match is
	// weaker evidence than a fresh classification.
	OfflineDiscount float64
}

func (c Config) withDefaults() Config {
	if c.ReviewThreshold <= 0 {
		c.ReviewThreshold = 0.7
	}
	if c.OfflineDiscount <= 0 {
		c.OfflineDiscount = 0.8
	}
	return c
}

// Result is what one categorization cycle produced.
type Result struct {
	Categorization *classify.Categorization
	CategoryID     *int64
	ProjectID      *int64
	Offline        bool
}

type Categorizer struct {
	store      *store.Store
	classifier Classifier
	cache      *cache.Cache
	cfg        Config
	offline    atomic.Bool
}

func New(s *store.Store, classifier Classifier, c *cache.Cache, cfg Config) *Categorizer {
	return &Categorizer{
		store:      s,
		classifier: classifier,
		cache:      c,
		cfg:        cfg.withDefaults(),
	}
}

// Offline reports whether the last cycle fell back to the cache.
func (c *Categorizer) Offline() bool {
	return c.offline.Load()
}

// Categorize runs one full cycle for a session: classify (or fall back),
// reconcile against the taxonomy, persist onto the session, and queue
// suggestions when confidence is low. Persistence errors propagate;
// classifier and cache failures are only surfaced as ErrNoCategorization
// when neither path yields a result.
func (c *Categorizer) Categorize(ctx context.Context, screenshot []byte, session *store.Session) (*Result, error) {
	roles, err := c.store.ListRoles(true)
	if err != nil {
		return nil, err
	}
	categories, err := c.store.ListCategories(true)
	if err != nil {
		return nil, err
	}
	projects, err := c.store.ListProjects(true)
	if err != nil {
		return nil, err
	}

	cat, offline, err := c.obtain(ctx, screenshot, session, roles, categories, projects)
	if err != nil {
		return nil, err
	}
	c.offline.Store(offline)

	result, err := c.reconcile(cat, session, projects, offline)
	if err != nil {
		return nil, err
	}

	if cat.Confidence < c.cfg.ReviewThreshold {
		if err := c.queueSuggestions(session, cat); err != nil {
			return nil, err
		}
	}

	if result.ProjectID != nil {
		if err := c.store.AddProjectDuration(*result.ProjectID, session.Duration, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// obtain tries the gateway, then the cache. A missing API key is a
// configuration error and surfaces immediately.
func (c *Categorizer) obtain(ctx context.Context, screenshot []byte, session *store.Session, roles []store.Role, categories []store.Category, projects []store.Project) (*classify.Categorization, bool, error) {
	req := classify.Request{
		Image:       screenshot,
		AppName:     session.AppName,
		WindowTitle: session.WindowTitle,
	}
	for _, r := range roles {
		req.Roles = append(req.Roles, classify.RoleInfo{Name: r.Name, Description: r.Description})
	}
	for _, cat := range categories {
		req.Categories = append(req.Categories, classify.CategoryInfo{
			Name: cat.Name, Slug: cat.Slug, Description: cat.Description,
		})
	}
	for _, p := range projects {
		req.KnownProjects = append(req.KnownProjects, p.Name)
	}

	cat, err := c.classifier.Classify(ctx, req)
	if err == nil {
		if cerr := c.cache.Record(session.AppName, session.WindowTitle, cat.ProjectName,
			cat.ProjectRole, cat.WorkCategory, cat.SuggestedPatterns, cat.Confidence); cerr != nil {
			return nil, false, cerr
		}
		return cat, false, nil
	}
	if errors.Is(err, classify.ErrMissingAPIKey) {
		return nil, false, err
	}

	cached, lerr := c.cache.Lookup(session.AppName, session.WindowTitle)
	if lerr != nil {
		return nil, false, lerr
	}
	if cached == nil {
		return nil, false, ErrNoCategorization
	}
	if terr := c.cache.Touch(cached.ID); terr != nil {
		return nil, false, terr
	}

	return &classify.Categorization{
		ProjectName:       cached.ProjectName,
		ProjectRole:       cached.RoleName,
		WorkCategory:      cached.CategorySlug,
		Confidence:        cached.Confidence * c.cfg.OfflineDiscount,
		Reasoning:         fmt.Sprintf("Offline: matched cached categorization for %s", cached.AppName),
		SuggestedPatterns: cached.Patterns,
	}, true, nil
}

// reconcile maps the categorization onto taxonomy entities and persists it
// on the session. An unknown category slug leaves the category unset; a
// category is never invented.
func (c *Categorizer) reconcile(cat *classify.Categorization, session *store.Session, projects []store.Project, offline bool) (*Result, error) {
	var categoryID *int64
	category, err := c.store.GetCategoryBySlug(cat.WorkCategory)
	if err != nil {
		return nil, err
	}
	if category != nil {
		categoryID = &category.ID
	}

	project, err := c.resolveProject(projects, cat, session)
	if err != nil {
		return nil, err
	}
	var projectID *int64
	if project != nil {
		projectID = &project.ID
	}

	if err := c.store.ApplyCategorization(session.ID, categoryID, projectID,
		cat.Confidence, cat.Summary, cat.KeyInsights); err != nil {
		return nil, err
	}

	return &Result{
		Categorization: cat,
		CategoryID:     categoryID,
		ProjectID:      projectID,
		Offline:        offline,
	}, nil
}

// resolveProject reuses a known project (growing patterns only on exact
// name matches) or creates a new AI-suggested one.
func (c *Categorizer) resolveProject(known []store.Project, cat *classify.Categorization, session *store.Session) (*store.Project, error) {
	if cat.ProjectName == "" {
		return nil, nil
	}
	now := time.Now().UTC()

	matched := MatchProject(known, cat.ProjectName, session.AppName, session.WindowTitle)
	if matched != nil {
		if strings.EqualFold(matched.Name, cat.ProjectName) && len(cat.SuggestedPatterns) > 0 {
			patterns := matched.Patterns
			for _, p := range cat.SuggestedPatterns {
				patterns = AppendPattern(patterns, p)
			}
			if len(patterns) != len(matched.Patterns) {
				if err := c.store.UpdateProjectPatterns(matched.ID, patterns); err != nil {
					return nil, err
				}
			}
		}
		if err := c.store.TouchProject(matched.ID, now); err != nil {
			return nil, err
		}
		return matched, nil
	}

	var roleID *int64
	if cat.ProjectRole != "" {
		role, err := c.store.GetRoleByName(cat.ProjectRole)
		if err != nil {
			return nil, err
		}
		if role != nil {
			roleID = &role.ID
		}
	}

	return c.store.CreateProject(&store.Project{
		Name:        cat.ProjectName,
		RoleID:      roleID,
		Patterns:    dedupPatterns(cat.SuggestedPatterns),
		Active:      true,
		AISuggested: true,
		Confidence:  0.8,
		LastSeen:    &now,
	})
}

// queueSuggestions creates exactly three pending rows - project, category,
// role - so one review screen can act on all of them together.
func (c *Categorizer) queueSuggestions(session *store.Session, cat *classify.Categorization) error {
	sctx := store.SuggestionContext{
		AppName:      session.AppName,
		WindowTitle:  session.WindowTitle,
		ProjectName:  cat.ProjectName,
		CategorySlug: cat.WorkCategory,
		RoleName:     cat.ProjectRole,
	}
	rows := []struct {
		kind  store.SuggestionKind
		value string
	}{
		{store.SuggestProject, cat.ProjectName},
		{store.SuggestCategory, cat.WorkCategory},
		{store.SuggestRole, cat.ProjectRole},
	}
	for _, row := range rows {
		if _, err := c.store.CreateSuggestion(session.ID, row.kind, row.value,
			cat.Confidence, cat.Reasoning, sctx); err != nil {
			return err
		}
	}
	return nil
}
