package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"focal/internal/store"
)

func ToCSV(sessions []store.Session, lookups Lookups, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "App", "Window Title", "Project", "Category", "Start", "End", "Duration (s)", "Duration", "Confidence"}); err != nil {
		return err
	}

	for _, s := range sessions {
		endStr := ""
		if s.EndTime != nil {
			endStr = s.EndTime.Local().Format(time.RFC3339)
		}
		confStr := ""
		if s.AIConfidence != nil {
			confStr = fmt.Sprintf("%.2f", *s.AIConfidence)
		}

		row := []string{
			fmt.Sprintf("%d", s.ID),
			s.AppName,
			s.WindowTitle,
			lookups.projectName(s.ProjectID),
			lookups.categoryName(s.CategoryID),
			s.StartTime.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", s.Duration),
			formatDuration(s.Duration),
			confStr,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
