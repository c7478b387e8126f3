package store

import "time"

// Session is one persisted span of classified activity (or an idle gap).
type Session struct {
	ID          int64
	Start       time.Time
	End         time.Time
	DurationSec int64
	ProcessName string
	ExePath     string
	WindowTitle string
	Category    string
	IntentTag   *string
}

type Setting struct {
	Key   string
	Value string
}

// SessionFilter is used to filter session queries.
type SessionFilter struct {
	From     *time.Time
	To       *time.Time
	Category *string
	Limit    int
}

// CategorySummary aggregates tracked seconds per category.
type CategorySummary struct {
	Category     string
	TotalSeconds int64
}

// AppSummary aggregates tracked seconds per process.
type AppSummary struct {
	ProcessName  string
	TotalSeconds int64
}
