package settings

import (
	"testing"
	"time"

	"github.com/sadopc/timesink/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st), st
}

func TestLoadSeedsDefaults(t *testing.T) {
	svc, st := newTestService(t)
	s, err := svc.Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.SamplingIntervalSec != 1 || s.IdleThresholdMin != 3 || s.RetentionDays != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if !s.PromptsEnabled || s.FocusStart.String() != "09:00" || s.FocusEnd.String() != "17:00" {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	// Keys must now exist in the table.
	for _, key := range settingKeys {
		if _, err := st.GetSetting(key); err != nil {
			t.Fatalf("key %q not seeded: %v", key, err)
		}
	}
}

func TestLoadKeepsExistingValues(t *testing.T) {
	svc, st := newTestService(t)
	st.SetSetting(KeySamplingInterval, "5")
	s, err := svc.Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.SamplingIntervalSec != 5 {
		t.Fatalf("existing value overwritten: %d", s.SamplingIntervalSec)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	want := Settings{
		SamplingIntervalSec:   2,
		IdleThresholdMin:      10,
		RetentionDays:         30,
		CloseToTray:           false,
		FocusStart:            Clock{Hour: 8, Minute: 30},
		FocusEnd:              Clock{Hour: 18, Minute: 15},
		PromptsEnabled:        false,
		DistractionCategories: []string{"Gaming"},
	}
	if err := svc.Save(want); err != nil {
		t.Fatal(err)
	}
	got := svc.Snapshot()
	if got.SamplingIntervalSec != 2 || got.IdleThresholdMin != 10 || got.RetentionDays != 30 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CloseToTray || got.PromptsEnabled {
		t.Fatalf("bool round trip mismatch: %+v", got)
	}
	if got.FocusStart.String() != "08:30" || got.FocusEnd.String() != "18:15" {
		t.Fatalf("clock round trip mismatch: %+v", got)
	}
	if len(got.DistractionCategories) != 1 || got.DistractionCategories[0] != "Gaming" {
		t.Fatalf("categories round trip mismatch: %+v", got.DistractionCategories)
	}
}

func TestSnapshotToleratesGarbage(t *testing.T) {
	svc, st := newTestService(t)
	st.SetSetting(KeySamplingInterval, "not a number")
	st.SetSetting(KeyFocusStart, "nonsense")
	st.SetSetting(KeyDistractionCategories, "{broken json")

	s := svc.Snapshot()
	d := Defaults()
	if s.SamplingIntervalSec != d.SamplingIntervalSec {
		t.Fatalf("bad int should fall back to default, got %d", s.SamplingIntervalSec)
	}
	if s.FocusStart != d.FocusStart {
		t.Fatalf("bad clock should fall back to default, got %v", s.FocusStart)
	}
	if len(s.DistractionCategories) != len(d.DistractionCategories) {
		t.Fatalf("bad json should fall back to default, got %v", s.DistractionCategories)
	}
}

func TestSamplingIntervalFloor(t *testing.T) {
	s := Settings{SamplingIntervalSec: 0}
	if s.SamplingInterval() != time.Second {
		t.Fatalf("interval below 1s must clamp to 1s, got %v", s.SamplingInterval())
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:05")
	if err != nil {
		t.Fatal(err)
	}
	if c.Hour != 9 || c.Minute != 5 {
		t.Fatalf("unexpected clock: %+v", c)
	}
	for _, bad := range []string{"25:00", "12:60", "junk", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestInFocusWindow(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC)
	}
	normal := Settings{FocusStart: Clock{Hour: 9}, FocusEnd: Clock{Hour: 17}}
	wrapped := Settings{FocusStart: Clock{Hour: 22}, FocusEnd: Clock{Hour: 6}}

	tests := []struct {
		name string
		s    Settings
		t    time.Time
		want bool
	}{
		{"inside normal", normal, day(10, 0), true},
		{"at start", normal, day(9, 0), true},
		{"at end", normal, day(17, 0), true},
		{"before start", normal, day(8, 59), false},
		{"after end", normal, day(17, 1), false},
		{"wrapped late night", wrapped, day(23, 30), true},
		{"wrapped early morning", wrapped, day(5, 0), true},
		{"wrapped midday", wrapped, day(12, 0), false},
		{"wrapped at start", wrapped, day(22, 0), true},
		{"wrapped at end", wrapped, day(6, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.InFocusWindow(tt.t); got != tt.want {
				t.Fatalf("InFocusWindow(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestIsDistraction(t *testing.T) {
	s := Settings{DistractionCategories: []string{"Social", "Video"}}
	if !s.IsDistraction("Social") {
		t.Fatal("Social should be a distraction")
	}
	if s.IsDistraction("Work") {
		t.Fatal("Work should not be a distraction")
	}
}
