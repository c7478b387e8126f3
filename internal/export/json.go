package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/timesink/internal/store"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID          int64  `json:"id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	DurationSec int64  `json:"duration_seconds"`
	Duration    string `json:"duration"`
	Process     string `json:"process,omitempty"`
	ExePath     string `json:"exe_path,omitempty"`
	Title       string `json:"title,omitempty"`
	Category    string `json:"category"`
	Intent      string `json:"intent,omitempty"`
}

func ToJSON(sessions []store.Session, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		intent := ""
		if s.IntentTag != nil {
			intent = *s.IntentTag
		}
		export.Sessions = append(export.Sessions, jsonSession{
			ID:          s.ID,
			Start:       s.Start.Local().Format(time.RFC3339),
			End:         s.End.Local().Format(time.RFC3339),
			DurationSec: s.DurationSec,
			Duration:    formatDuration(s.DurationSec),
			Process:     s.ProcessName,
			ExePath:     s.ExePath,
			Title:       s.WindowTitle,
			Category:    s.Category,
			Intent:      intent,
		})
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
