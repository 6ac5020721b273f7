package store

import (
	"database/sql"
	"fmt"
	"time"
)

const feedbackColumns = `id, insight_kind, insight_text, action, target_kind, target_id,
	target_name, changes, confidence, created_at, applied_at`

func scanFeedback(scan func(...any) error) (*InsightFeedback, error) {
	fb := &InsightFeedback{}
	var action, targetKind, createdAt string
	var targetID sql.NullInt64
	var appliedAt sql.NullString
	err := scan(&fb.ID, &fb.InsightKind, &fb.InsightText, &action, &targetKind, &targetID,
		&fb.TargetName, &fb.Changes, &fb.Confidence, &createdAt, &appliedAt)
	if err != nil {
		return nil, err
	}
	fb.Action = FeedbackAction(action)
	fb.TargetKind = TargetKind(targetKind)
	if targetID.Valid {
		fb.TargetID = &targetID.Int64
	}
	fb.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if appliedAt.Valid {
		t, _ := time.Parse(time.RFC3339, appliedAt.String)
		fb.AppliedAt = &t
	}
	return fb, nil
}

// InsertInsightFeedback appends an audit row. Rows are never mutated after
// creation except through MarkFeedbackApplied.
func (s *Store) InsertInsightFeedback(fb *InsightFeedback) (*InsightFeedback, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var appliedAt any
	if fb.AppliedAt != nil {
		appliedAt = fb.AppliedAt.UTC().Format(time.RFC3339)
	}
	changes := fb.Changes
	if changes == "" {
		changes = "{}"
	}
	res, err := s.db.Exec(
		`INSERT INTO insight_feedback
			(insight_kind, insight_text, action, target_kind, target_id, target_name, changes, confidence, created_at, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fb.InsightKind, fb.InsightText, string(fb.Action), string(fb.TargetKind),
		fb.TargetID, fb.TargetName, changes, fb.Confidence, now, appliedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert insight feedback: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetInsightFeedback(id)
}

func (s *Store) GetInsightFeedback(id int64) (*InsightFeedback, error) {
	row := s.db.QueryRow(`SELECT `+feedbackColumns+` FROM insight_feedback WHERE id = ?`, id)
	fb, err := scanFeedback(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get insight feedback %d: %w", id, err)
	}
	return fb, nil
}

func (s *Store) ListInsightFeedback(limit int) ([]InsightFeedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM insight_feedback ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list insight feedback: %w", err)
	}
	defer rows.Close()

	var out []InsightFeedback
	for rows.Next() {
		fb, err := scanFeedback(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *fb)
	}
	return out, rows.Err()
}

// MarkFeedbackApplied stamps the applied timestamp on an existing row.
func (s *Store) MarkFeedbackApplied(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE insight_feedback SET applied_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark feedback %d applied: %w", id, err)
	}
	return nil
}

func (s *Store) CountInsightFeedback() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM insight_feedback`).Scan(&n)
	return n, err
}
