package store

import (
	"database/sql"
	"fmt"
	"time"
)

const projectColumns = `id, name, role_id, default_category_id, patterns, source_hints, active,
	ai_suggested, user_confirmed, confidence, tracked_seconds, last_seen, notes, created_at`

func scanProject(scan func(...any) error) (*Project, error) {
	p := &Project{}
	var roleID, categoryID sql.NullInt64
	var patterns, hints, createdAt string
	var lastSeen sql.NullString
	var active, aiSuggested, userConfirmed int
	err := scan(&p.ID, &p.Name, &roleID, &categoryID, &patterns, &hints, &active,
		&aiSuggested, &userConfirmed, &p.Confidence, &p.TrackedSeconds, &lastSeen, &p.Notes, &createdAt)
	if err != nil {
		return nil, err
	}
	if roleID.Valid {
		p.RoleID = &roleID.Int64
	}
	if categoryID.Valid {
		p.DefaultCategoryID = &categoryID.Int64
	}
	p.Patterns = decodeStrings(patterns)
	p.SourceHints = decodeStrings(hints)
	p.Active = active == 1
	p.AISuggested = aiSuggested == 1
	p.UserConfirmed = userConfirmed == 1
	if lastSeen.Valid {
		t, _ := time.Parse(time.RFC3339, lastSeen.String)
		p.LastSeen = &t
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// CreateProject inserts p and returns the stored row. Zero-value fields use
// schema defaults where sensible.
func (s *Store) CreateProject(p *Project) (*Project, error) {
	var lastSeen any
	if p.LastSeen != nil {
		lastSeen = p.LastSeen.UTC().Format(time.RFC3339)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO projects (name, role_id, default_category_id, patterns, source_hints, active,
			ai_suggested, user_confirmed, confidence, tracked_seconds, last_seen, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.RoleID, p.DefaultCategoryID, encodeStrings(p.Patterns), encodeStrings(p.SourceHints),
		boolInt(p.Active), boolInt(p.AISuggested), boolInt(p.UserConfirmed),
		p.Confidence, p.TrackedSeconds, lastSeen, p.Notes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetProject(id)
}

func (s *Store) GetProject(id int64) (*Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// GetProjectByName matches case-insensitively and returns nil when unknown.
func (s *Store) GetProjectByName(name string) (*Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE name = ? COLLATE NOCASE`, name)
	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	return p, nil
}

func (s *Store) ListProjects(activeOnly bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProjectPatterns(id int64, patterns []string) error {
	_, err := s.db.Exec(`UPDATE projects SET patterns = ? WHERE id = ?`, encodeStrings(patterns), id)
	if err != nil {
		return fmt.Errorf("update project %d patterns: %w", id, err)
	}
	return nil
}

func (s *Store) SetProjectRole(id int64, roleID *int64) error {
	_, err := s.db.Exec(`UPDATE projects SET role_id = ? WHERE id = ?`, roleID, id)
	if err != nil {
		return fmt.Errorf("set project %d role: %w", id, err)
	}
	return nil
}

// TouchProject updates last-seen without changing anything else.
func (s *Store) TouchProject(id int64, seen time.Time) error {
	_, err := s.db.Exec(`UPDATE projects SET last_seen = ? WHERE id = ?`,
		seen.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("touch project %d: %w", id, err)
	}
	return nil
}

// AddProjectDuration adds seconds to the cumulative tracked duration and
// advances last-seen. Additive, never an overwrite.
func (s *Store) AddProjectDuration(id int64, seconds int64, seen time.Time) error {
	_, err := s.db.Exec(
		`UPDATE projects SET tracked_seconds = tracked_seconds + ?, last_seen = ? WHERE id = ?`,
		seconds, seen.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("add project %d duration: %w", id, err)
	}
	return nil
}

// ConfirmProject marks a project as human-confirmed with full confidence.
func (s *Store) ConfirmProject(id int64) error {
	_, err := s.db.Exec(
		`UPDATE projects SET user_confirmed = 1, confidence = 1.0 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("confirm project %d: %w", id, err)
	}
	return nil
}

func (s *Store) ArchiveProject(id int64) error {
	_, err := s.db.Exec(`UPDATE projects SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive project %d: %w", id, err)
	}
	return nil
}

// ProjectSessionStats returns the summed session duration and most recent
// session start for a project, straight from the session history.
func (s *Store) ProjectSessionStats(id int64) (int64, *time.Time, error) {
	var total sql.NullInt64
	var latest sql.NullString
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(duration), 0), MAX(start_time) FROM sessions WHERE project_id = ?`, id,
	).Scan(&total, &latest)
	if err != nil {
		return 0, nil, fmt.Errorf("project %d stats: %w", id, err)
	}
	var seen *time.Time
	if latest.Valid {
		t, _ := time.Parse(time.RFC3339, latest.String)
		seen = &t
	}
	return total.Int64, seen, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
