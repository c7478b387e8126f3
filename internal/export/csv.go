package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/timesink/internal/store"
)

func ToCSV(sessions []store.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Start", "End", "Duration (s)", "Duration", "Process", "Title", "Category", "Intent"}); err != nil {
		return err
	}

	for _, s := range sessions {
		intent := ""
		if s.IntentTag != nil {
			intent = *s.IntentTag
		}
		row := []string{
			fmt.Sprintf("%d", s.ID),
			s.Start.Local().Format(time.RFC3339),
			s.End.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", s.DurationSec),
			formatDuration(s.DurationSec),
			s.ProcessName,
			s.WindowTitle,
			s.Category,
			intent,
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
