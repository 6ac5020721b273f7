package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"focal/internal/store"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID          int64   `json:"id"`
	App         string  `json:"app"`
	WindowTitle string  `json:"window_title,omitempty"`
	Project     string  `json:"project,omitempty"`
	Category    string  `json:"category,omitempty"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time,omitempty"`
	DurationSec int64   `json:"duration_seconds"`
	Duration    string  `json:"duration"`
	Confidence  float64 `json:"ai_confidence,omitempty"`
	Summary     string  `json:"summary,omitempty"`
}

// Lookups resolves project and category names for export rows.
type Lookups struct {
	Projects   map[int64]*store.Project
	Categories map[int64]*store.Category
}

func ToJSON(sessions []store.Session, lookups Lookups, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		row := jsonSession{
			ID:          s.ID,
			App:         s.AppName,
			WindowTitle: s.WindowTitle,
			Project:     lookups.projectName(s.ProjectID),
			Category:    lookups.categoryName(s.CategoryID),
			StartTime:   s.StartTime.Local().Format(time.RFC3339),
			DurationSec: s.Duration,
			Duration:    formatDuration(s.Duration),
			Summary:     s.Summary,
		}
		if s.EndTime != nil {
			row.EndTime = s.EndTime.Local().Format(time.RFC3339)
		}
		if s.AIConfidence != nil {
			row.Confidence = *s.AIConfidence
		}
		export.Sessions = append(export.Sessions, row)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func (l Lookups) projectName(id *int64) string {
	if id == nil {
		return ""
	}
	if p, ok := l.Projects[*id]; ok {
		return p.Name
	}
	return "Unknown"
}

func (l Lookups) categoryName(id *int64) string {
	if id == nil {
		return ""
	}
	if c, ok := l.Categories[*id]; ok {
		return c.Name
	}
	return "Unknown"
}
