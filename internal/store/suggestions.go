package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const suggestionColumns = `id, session_id, kind, value, confidence, reasoning, context, status,
	user_value, created_at, resolved_at`

func scanSuggestion(scan func(...any) error) (*Suggestion, error) {
	sg := &Suggestion{}
	var kind, status, context, createdAt string
	var resolvedAt sql.NullString
	err := scan(&sg.ID, &sg.SessionID, &kind, &sg.Value, &sg.Confidence, &sg.Reasoning,
		&context, &status, &sg.UserValue, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	sg.Kind = SuggestionKind(kind)
	sg.Status = SuggestionStatus(status)
	_ = json.Unmarshal([]byte(context), &sg.Context)
	sg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if resolvedAt.Valid {
		t, _ := time.Parse(time.RFC3339, resolvedAt.String)
		sg.ResolvedAt = &t
	}
	return sg, nil
}

func (s *Store) CreateSuggestion(sessionID int64, kind SuggestionKind, value string, confidence float64, reasoning string, ctx SuggestionContext) (*Suggestion, error) {
	ctxJSON, _ := json.Marshal(ctx)
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO suggestions (session_id, kind, value, confidence, reasoning, context, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`,
		sessionID, string(kind), value, confidence, reasoning, string(ctxJSON), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert suggestion: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetSuggestion(id)
}

func (s *Store) GetSuggestion(id int64) (*Suggestion, error) {
	row := s.db.QueryRow(`SELECT `+suggestionColumns+` FROM suggestions WHERE id = ?`, id)
	sg, err := scanSuggestion(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get suggestion %d: %w", id, err)
	}
	return sg, nil
}

func (s *Store) ListPendingSuggestions() ([]Suggestion, error) {
	rows, err := s.db.Query(
		`SELECT ` + suggestionColumns + ` FROM suggestions WHERE status = 'pending' ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, *sg)
	}
	return suggestions, rows.Err()
}

func (s *Store) CountPendingSuggestions() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM suggestions WHERE status = 'pending'`).Scan(&n)
	return n, err
}

// ResolveSuggestion moves a pending suggestion into a terminal status and
// stamps resolved_at. Already-resolved suggestions are left untouched and
// reported as an error; the transition is strictly one-way.
func (s *Store) ResolveSuggestion(id int64, status SuggestionStatus, userValue string) error {
	if status == SuggestionPending {
		return fmt.Errorf("resolve suggestion %d: %q is not a terminal status", id, status)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE suggestions SET status = ?, user_value = ?, resolved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(status), userValue, now, id,
	)
	if err != nil {
		return fmt.Errorf("resolve suggestion %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("suggestion %d is not pending", id)
	}
	return nil
}
