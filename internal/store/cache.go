package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PrunePolicy bounds the offline categorization cache.
type PrunePolicy struct {
	MaxAge         time.Duration
	Capacity       int
	TargetFraction float64 // fraction of capacity kept after a capacity prune
}

const cacheColumns = `id, app_name, window_title, project_name, role_name, category_slug,
	patterns, confidence, use_count, created_at`

func scanCached(scan func(...any) error) (*CachedCategorization, error) {
	c := &CachedCategorization{}
	var patterns, createdAt string
	err := scan(&c.ID, &c.AppName, &c.WindowTitle, &c.ProjectName, &c.RoleName,
		&c.CategorySlug, &patterns, &c.Confidence, &c.UseCount, &createdAt)
	if err != nil {
		return nil, err
	}
	c.Patterns = decodeStrings(patterns)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

// RecordCachedCategorization appends a cache row, then prunes inside the
// same transaction once the cache exceeds its capacity. Lookups never see a
// partially pruned table.
func (s *Store) RecordCachedCategorization(c *CachedCategorization, policy PrunePolicy) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin cache record: %w", err)
	}
	defer tx.Rollback()

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := tx.Exec(
		`INSERT INTO cached_categorizations
			(app_name, window_title, project_name, role_name, category_slug, patterns, confidence, use_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.AppName, c.WindowTitle, c.ProjectName, c.RoleName, c.CategorySlug,
		encodeStrings(c.Patterns), c.Confidence, c.UseCount, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert cached categorization: %w", err)
	}
	id, _ := res.LastInsertId()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM cached_categorizations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache: %w", err)
	}
	if policy.Capacity > 0 && count > policy.Capacity {
		if err := pruneCacheTx(tx, policy, time.Now().UTC()); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cache record: %w", err)
	}
	return id, nil
}

// PruneCache applies the retention and capacity policy immediately.
func (s *Store) PruneCache(policy PrunePolicy, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache prune: %w", err)
	}
	defer tx.Rollback()
	if err := pruneCacheTx(tx, policy, now); err != nil {
		return err
	}
	return tx.Commit()
}

// pruneCacheTx first drops entries past the retention window, then trims to
// the target size keeping highest use-count, most recent rows.
func pruneCacheTx(tx *sql.Tx, policy PrunePolicy, now time.Time) error {
	if policy.MaxAge > 0 {
		cutoff := now.Add(-policy.MaxAge).Format(time.RFC3339)
		if _, err := tx.Exec(`DELETE FROM cached_categorizations WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune stale cache rows: %w", err)
		}
	}

	if policy.Capacity <= 0 {
		return nil
	}
	target := int(float64(policy.Capacity) * policy.TargetFraction)
	if target <= 0 {
		target = policy.Capacity
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM cached_categorizations`).Scan(&count); err != nil {
		return fmt.Errorf("count cache: %w", err)
	}
	if count <= policy.Capacity {
		return nil
	}

	_, err := tx.Exec(`
		DELETE FROM cached_categorizations WHERE id NOT IN (
			SELECT id FROM cached_categorizations
			ORDER BY use_count DESC, created_at DESC, id DESC
			LIMIT ?
		)`, target)
	if err != nil {
		return fmt.Errorf("trim cache: %w", err)
	}
	return nil
}

// CachedCandidates returns every cache row for an app, best-ranked first.
func (s *Store) CachedCandidates(appName string) ([]CachedCategorization, error) {
	rows, err := s.db.Query(
		`SELECT `+cacheColumns+` FROM cached_categorizations
		 WHERE app_name = ? COLLATE NOCASE
		 ORDER BY use_count DESC, created_at DESC, id DESC`,
		appName,
	)
	if err != nil {
		return nil, fmt.Errorf("cache candidates for %q: %w", appName, err)
	}
	defer rows.Close()

	var out []CachedCategorization
	for rows.Next() {
		c, err := scanCached(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// TouchCached increments a cache row's use count.
func (s *Store) TouchCached(id int64) error {
	_, err := s.db.Exec(`UPDATE cached_categorizations SET use_count = use_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("touch cached %d: %w", id, err)
	}
	return nil
}

func (s *Store) CountCached() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cached_categorizations`).Scan(&n)
	return n, err
}
