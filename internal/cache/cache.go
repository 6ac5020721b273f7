// Package cache keeps previously successful categorizations for offline
// fallback. Records are append-only; ranking strength comes from use count
// and recency, and retention is enforced by pruning.
package cache

import (
	"strings"
	"time"

	"focal/internal/store"
)

type Cache struct {
	store  *store.Store
	policy store.PrunePolicy
}

func New(s *store.Store, retention time.Duration, capacity int, pruneTarget float64) *Cache {
	if pruneTarget <= 0 || pruneTarget > 1 {
		pruneTarget = 0.8
	}
	return &Cache{
		store: s,
		policy: store.PrunePolicy{
			MaxAge:         retention,
			Capacity:       capacity,
			TargetFraction: pruneTarget,
		},
	}
}

// Record appends a cache row; it never overwrites, so newer entries win in
// lookup ordering. Pruning runs inside the same transaction once capacity
// is exceeded.
func (c *Cache) Record(appName, windowTitle, projectName, roleName, categorySlug string, patterns []string, confidence float64) error {
	_, err := c.store.RecordCachedCategorization(&store.CachedCategorization{
		AppName:      appName,
		WindowTitle:  windowTitle,
		ProjectName:  projectName,
		RoleName:     roleName,
		CategorySlug: categorySlug,
		Patterns:     patterns,
		Confidence:   confidence,
	}, c.policy)
	return err
}

// Lookup finds the best cached categorization for an observation, or nil if
// the app has never been seen. Candidates arrive ranked by use count then
// recency, so each tier takes its first hit.
func (c *Cache) Lookup(appName, windowTitle string) (*store.CachedCategorization, error) {
	candidates, err := c.store.CachedCandidates(appName)
	if err != nil {
		return nil, err
	}
	return bestMatch(candidates, windowTitle), nil
}

// bestMatch applies the three lookup tiers over ranked candidates:
// exact app+title, then stored-pattern substring against the title, then
// the top-ranked entry for the app regardless of title.
func bestMatch(candidates []store.CachedCategorization, windowTitle string) *store.CachedCategorization {
	if len(candidates) == 0 {
		return nil
	}

	title := strings.ToLower(windowTitle)
	if windowTitle != "" {
		for i := range candidates {
			if strings.EqualFold(candidates[i].WindowTitle, windowTitle) {
				return &candidates[i]
			}
		}
		for i := range candidates {
			for _, p := range candidates[i].Patterns {
				if p != "" && strings.Contains(title, strings.ToLower(p)) {
					return &candidates[i]
				}
			}
		}
	}

	return &candidates[0]
}

// Touch strengthens a reused entry's future ranking without touching its
// confidence.
func (c *Cache) Touch(id int64) error {
	return c.store.TouchCached(id)
}

// Prune applies the retention window and capacity cap immediately.
func (c *Cache) Prune() error {
	return c.store.PruneCache(c.policy, time.Now().UTC())
}
