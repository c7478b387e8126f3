// Package settings holds the tracker's configuration as an immutable
// snapshot backed by the store's settings table. The engine re-reads a
// fresh snapshot at every tick; the presentation layer writes through
// Save. Nothing here caches across ticks.
package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sadopc/timesink/internal/store"
)

// Setting keys as stored in the settings table.
const (
	KeySamplingInterval      = "sampling_interval_sec"
	KeyIdleThreshold         = "idle_threshold_min"
	KeyRetentionDays         = "retention_days"
	KeyCloseToTray           = "close_to_tray"
	KeyFocusStart            = "focus_start"
	KeyFocusEnd              = "focus_end"
	KeyPromptsEnabled        = "prompts_enabled"
	KeyDistractionCategories = "distraction_categories"
)

// Clock is a time of day with minute resolution, stored as "HH:MM".
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("parse clock %q: out of range", s)
	}
	return c, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) secondOfDay() int {
	return c.Hour*3600 + c.Minute*60
}

// Settings is one immutable configuration snapshot.
type Settings struct {
	SamplingIntervalSec   int
	IdleThresholdMin      int
	RetentionDays         int
	CloseToTray           bool
	FocusStart            Clock
	FocusEnd              Clock
	PromptsEnabled        bool
	DistractionCategories []string
}

// Defaults mirrors the values seeded into a fresh database.
func Defaults() Settings {
	return Settings{
		SamplingIntervalSec:   1,
		IdleThresholdMin:      3,
		RetentionDays:         0,
		CloseToTray:           true,
		FocusStart:            Clock{Hour: 9},
		FocusEnd:              Clock{Hour: 17},
		PromptsEnabled:        true,
		DistractionCategories: []string{"Social", "Video", "Gaming"},
	}
}

// SamplingInterval returns the loop cadence, never below one second.
func (s Settings) SamplingInterval() time.Duration {
	secs := s.SamplingIntervalSec
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func (s Settings) IdleThresholdSec() int {
	return s.IdleThresholdMin * 60
}

func (s Settings) IsDistraction(category string) bool {
	for _, c := range s.DistractionCategories {
		if c == category {
			return true
		}
	}
	return false
}

// InFocusWindow reports whether t's local time of day falls inside the
// focus window, inclusive on both ends. A window whose start is after
// its end wraps past midnight.
func (s Settings) InFocusWindow(t time.Time) bool {
	now := t.Hour()*3600 + t.Minute()*60 + t.Second()
	start := s.FocusStart.secondOfDay()
	end := s.FocusEnd.secondOfDay()
	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}

// Service loads and persists snapshots through the store.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Load seeds any missing keys with defaults and returns the resulting
// snapshot. Call once at startup.
func (svc *Service) Load() (Settings, error) {
	defaults := defaultValues()
	for _, key := range settingKeys {
		if _, err := svc.store.GetSetting(key); err != nil {
			if err := svc.store.SetSetting(key, defaults[key]); err != nil {
				return Settings{}, fmt.Errorf("seed setting %q: %w", key, err)
			}
		}
	}
	return svc.Snapshot(), nil
}

// Snapshot reads the current settings from the store. Keys that are
// missing or unparseable fall back to their defaults, so a damaged
// settings table can never stall the sampling loop.
func (svc *Service) Snapshot() Settings {
	s := Defaults()
	if v, err := svc.store.GetSetting(KeySamplingInterval); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			s.SamplingIntervalSec = n
		}
	}
	if v, err := svc.store.GetSetting(KeyIdleThreshold); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.IdleThresholdMin = n
		}
	}
	if v, err := svc.store.GetSetting(KeyRetentionDays); err == nil {
		if n, err := strconv.Atoi(v); err == nil {
			s.RetentionDays = n
		}
	}
	if v, err := svc.store.GetSetting(KeyCloseToTray); err == nil {
		s.CloseToTray = parseBool(v, s.CloseToTray)
	}
	if v, err := svc.store.GetSetting(KeyFocusStart); err == nil {
		if c, err := ParseClock(v); err == nil {
			s.FocusStart = c
		}
	}
	if v, err := svc.store.GetSetting(KeyFocusEnd); err == nil {
		if c, err := ParseClock(v); err == nil {
			s.FocusEnd = c
		}
	}
	if v, err := svc.store.GetSetting(KeyPromptsEnabled); err == nil {
		s.PromptsEnabled = parseBool(v, s.PromptsEnabled)
	}
	if v, err := svc.store.GetSetting(KeyDistractionCategories); err == nil {
		var cats []string
		if err := json.Unmarshal([]byte(v), &cats); err == nil {
			s.DistractionCategories = cats
		}
	}
	return s
}

// Save persists a full snapshot.
func (svc *Service) Save(s Settings) error {
	cats, err := json.Marshal(s.DistractionCategories)
	if err != nil {
		return fmt.Errorf("marshal distraction categories: %w", err)
	}
	values := map[string]string{
		KeySamplingInterval:      strconv.Itoa(s.SamplingIntervalSec),
		KeyIdleThreshold:         strconv.Itoa(s.IdleThresholdMin),
		KeyRetentionDays:         strconv.Itoa(s.RetentionDays),
		KeyCloseToTray:           formatBool(s.CloseToTray),
		KeyFocusStart:            s.FocusStart.String(),
		KeyFocusEnd:              s.FocusEnd.String(),
		KeyPromptsEnabled:        formatBool(s.PromptsEnabled),
		KeyDistractionCategories: string(cats),
	}
	for _, key := range settingKeys {
		if err := svc.store.SetSetting(key, values[key]); err != nil {
			return fmt.Errorf("save setting %q: %w", key, err)
		}
	}
	return nil
}

var settingKeys = []string{
	KeySamplingInterval,
	KeyIdleThreshold,
	KeyRetentionDays,
	KeyCloseToTray,
	KeyFocusStart,
	KeyFocusEnd,
	KeyPromptsEnabled,
	KeyDistractionCategories,
}

func defaultValues() map[string]string {
	d := Defaults()
	cats, _ := json.Marshal(d.DistractionCategories)
	return map[string]string{
		KeySamplingInterval:      strconv.Itoa(d.SamplingIntervalSec),
		KeyIdleThreshold:         strconv.Itoa(d.IdleThresholdMin),
		KeyRetentionDays:         strconv.Itoa(d.RetentionDays),
		KeyCloseToTray:           formatBool(d.CloseToTray),
		KeyFocusStart:            d.FocusStart.String(),
		KeyFocusEnd:              d.FocusEnd.String(),
		KeyPromptsEnabled:        formatBool(d.PromptsEnabled),
		KeyDistractionCategories: string(cats),
	}
}

// parseBool accepts "true"/"false" as well as the numeric form the
// original database files used.
func parseBool(v string, fallback bool) bool {
	switch v {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n != 0
	}
	return fallback
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
