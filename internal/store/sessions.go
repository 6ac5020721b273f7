package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const sessionColumns = `id, start_time, end_time, duration, app_name, window_title, bundle_id,
	summary, key_insights, legacy_work_type, legacy_project_name, category_id, project_id,
	ai_confidence, ai_categorized, concurrent_project_ids, active, screenshot_count, created_at, updated_at`

func scanSession(scan func(...any) error) (*Session, error) {
	sess := &Session{}
	var startTime, keyInsights, concurrentIDs, createdAt, updatedAt string
	var endTime sql.NullString
	var categoryID, projectID sql.NullInt64
	var aiConfidence sql.NullFloat64
	var aiCategorized, active int
	err := scan(&sess.ID, &startTime, &endTime, &sess.Duration, &sess.AppName, &sess.WindowTitle,
		&sess.BundleID, &sess.Summary, &keyInsights, &sess.LegacyWorkType, &sess.LegacyProjectName,
		&categoryID, &projectID, &aiConfidence, &aiCategorized, &concurrentIDs, &active,
		&sess.ScreenshotCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	sess.StartTime, _ = time.Parse(time.RFC3339, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339, endTime.String)
		sess.EndTime = &t
	}
	sess.KeyInsights = decodeStrings(keyInsights)
	if categoryID.Valid {
		sess.CategoryID = &categoryID.Int64
	}
	if projectID.Valid {
		sess.ProjectID = &projectID.Int64
	}
	if aiConfidence.Valid {
		sess.AIConfidence = &aiConfidence.Float64
	}
	sess.AICategorized = aiCategorized == 1
	sess.ConcurrentProjectIDs = decodeInt64s(concurrentIDs)
	sess.Active = active == 1
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return sess, nil
}

// StartSession opens a new active session for the focused app.
func (s *Store) StartSession(appName, windowTitle, bundleID string, start time.Time) (*Session, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO sessions (start_time, app_name, window_title, bundle_id, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		start.UTC().Format(time.RFC3339), appName, windowTitle, bundleID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetSession(id)
}

func (s *Store) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

// ActiveSession returns the most recent open session, or nil.
func (s *Store) ActiveSession() (*Session, error) {
	row := s.db.QueryRow(`SELECT ` + sessionColumns + ` FROM sessions WHERE active = 1 ORDER BY id DESC LIMIT 1`)
	sess, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return sess, nil
}

// TickSession is called on every capture tick: it advances duration and the
// screenshot count and refreshes the observed window title.
func (s *Store) TickSession(id int64, duration int64, screenshots int, windowTitle string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE sessions SET duration = ?, screenshot_count = ?, window_title = ?, updated_at = ? WHERE id = ?`,
		duration, screenshots, windowTitle, now, id,
	)
	if err != nil {
		return fmt.Errorf("tick session %d: %w", id, err)
	}
	return nil
}

// CloseSession ends a session, fixing its end time and final duration.
func (s *Store) CloseSession(id int64, end time.Time) error {
	var startStr string
	err := s.db.QueryRow(`SELECT start_time FROM sessions WHERE id = ?`, id).Scan(&startStr)
	if err != nil {
		return fmt.Errorf("get session %d start: %w", id, err)
	}
	start, _ := time.Parse(time.RFC3339, startStr)
	duration := int64(end.Sub(start).Seconds())
	if duration < 0 {
		duration = 0
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`UPDATE sessions SET end_time = ?, duration = ?, active = 0, updated_at = ? WHERE id = ?`,
		end.UTC().Format(time.RFC3339), duration, now, id,
	)
	if err != nil {
		return fmt.Errorf("close session %d: %w", id, err)
	}
	return nil
}

// ApplyCategorization writes a categorization result onto a session.
func (s *Store) ApplyCategorization(id int64, categoryID, projectID *int64, confidence float64, summary string, keyInsights []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE sessions SET category_id = ?, project_id = ?, ai_confidence = ?, ai_categorized = 1,
			summary = ?, key_insights = ?, updated_at = ? WHERE id = ?`,
		categoryID, projectID, confidence, summary, encodeStrings(keyInsights), now, id,
	)
	if err != nil {
		return fmt.Errorf("categorize session %d: %w", id, err)
	}
	return nil
}

// SetSessionLegacy backfills the free-text labels carried over from rows
// that predate the structured taxonomy.
func (s *Store) SetSessionLegacy(id int64, workType, projectName string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE sessions SET legacy_work_type = ?, legacy_project_name = ?, updated_at = ? WHERE id = ?`,
		workType, projectName, now, id,
	)
	if err != nil {
		return fmt.Errorf("set session %d legacy labels: %w", id, err)
	}
	return nil
}

func (s *Store) SetSessionCategory(id int64, categoryID *int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`UPDATE sessions SET category_id = ?, updated_at = ? WHERE id = ?`, categoryID, now, id)
	if err != nil {
		return fmt.Errorf("set session %d category: %w", id, err)
	}
	return nil
}

func (s *Store) SetSessionProject(id int64, projectID *int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`UPDATE sessions SET project_id = ?, updated_at = ? WHERE id = ?`, projectID, now, id)
	if err != nil {
		return fmt.Errorf("set session %d project: %w", id, err)
	}
	return nil
}

func (s *Store) ListSessions(f SessionFilter) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND start_time < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	if f.ProjectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *f.ProjectID)
	}
	if f.Uncategorized {
		query += ` AND category_id IS NULL`
	}
	query += ` ORDER BY start_time DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// BulkSetCategory updates exactly the listed sessions' category.
func (s *Store) BulkSetCategory(ids []int64, categoryID int64) error {
	return s.bulkUpdate(ids, `category_id`, categoryID)
}

// BulkSetProject updates exactly the listed sessions' project.
func (s *Store) BulkSetProject(ids []int64, projectID int64) error {
	return s.bulkUpdate(ids, `project_id`, projectID)
}

func (s *Store) bulkUpdate(ids []int64, column string, value int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	now := time.Now().UTC().Format(time.RFC3339)
	args := []any{value, now}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.Exec(
		`UPDATE sessions SET `+column+` = ?, updated_at = ? WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return fmt.Errorf("bulk update %s: %w", column, err)
	}
	return nil
}

// CategoryDurations sums tracked time per category between from and to.
type CategoryDuration struct {
	CategoryID   *int64
	CategoryName string
	Color        string
	TotalSeconds int64
}

func (s *Store) CategoryDurations(from, to time.Time) ([]CategoryDuration, error) {
	rows, err := s.db.Query(`
		SELECT s.category_id, COALESCE(c.name, 'Uncategorized'), COALESCE(c.color, '#666666'),
		       COALESCE(SUM(s.duration), 0)
		FROM sessions s
		LEFT JOIN categories c ON c.id = s.category_id
		WHERE s.start_time >= ? AND s.start_time < ?
		GROUP BY s.category_id
		ORDER BY 4 DESC`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("category durations: %w", err)
	}
	defer rows.Close()

	var out []CategoryDuration
	for rows.Next() {
		var cd CategoryDuration
		var catID sql.NullInt64
		if err := rows.Scan(&catID, &cd.CategoryName, &cd.Color, &cd.TotalSeconds); err != nil {
			return nil, err
		}
		if catID.Valid {
			cd.CategoryID = &catID.Int64
		}
		out = append(out, cd)
	}
	return out, rows.Err()
}
