package tracker

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/timesink/internal/probe"
	"github.com/sadopc/timesink/internal/rules"
	"github.com/sadopc/timesink/internal/settings"
	"github.com/sadopc/timesink/internal/store"
)

// fakeProbe returns whatever the test put in it.
type fakeProbe struct {
	app     probe.ForegroundApp
	idleSec int
}

func (f *fakeProbe) ForegroundApp() probe.ForegroundApp { return f.app }
func (f *fakeProbe) IdleSeconds() int                   { return f.idleSec }

type testEngine struct {
	*Engine
	store  *store.Store
	probe  *fakeProbe
	events []Event
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fp := &fakeProbe{}
	e := NewEngine(st, settings.NewService(st), fp, log.New(io.Discard))

	te := &testEngine{Engine: e, store: st, probe: fp}
	e.Subscribe(func(ev Event) { te.events = append(te.events, ev) })
	return te
}

func (te *testEngine) sessions(t *testing.T) []store.Session {
	t.Helper()
	ss, err := te.store.ListSessions(store.SessionFilter{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	// ListSessions returns newest first; reverse into insertion order.
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
	return ss
}

func (te *testEngine) promptCount() int {
	n := 0
	for _, ev := range te.events {
		if _, ok := ev.(PromptNeeded); ok {
			n++
		}
	}
	return n
}

func addRule(t *testing.T, st *store.Store, r rules.Rule) {
	t.Helper()
	if _, err := st.AddRule(r); err != nil {
		t.Fatalf("add rule: %v", err)
	}
}

func snap() settings.Settings {
	s := settings.Defaults()
	s.PromptsEnabled = false
	return s
}

var t0 = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

// ============================================================
// Session lifecycle
// ============================================================

func TestTrackOpenExtendSwitch(t *testing.T) {
	te := newTestEngine(t)
	addRule(t, te.store, rules.Rule{
		Enabled: true, MatchType: rules.MatchSubstring,
		ProcessPattern: "chrome.exe", Category: "Video", Priority: 1,
	})
	te.lastTick = t0

	// Tick 1: chrome opens a Video session.
	te.probe.app = probe.ForegroundApp{ProcessName: "chrome.exe", WindowTitle: "YouTube - Cat Video"}
	te.tick(t0.Add(1*time.Second), snap())

	ss := te.sessions(t)
	if len(ss) != 1 {
		t.Fatalf("expected 1 session, got %d", len(ss))
	}
	if ss[0].Category != "Video" || ss[0].ProcessName != "chrome.exe" {
		t.Fatalf("unexpected session: %+v", ss[0])
	}
	if ss[0].DurationSec != 0 {
		t.Fatalf("new session should have zero duration, got %d", ss[0].DurationSec)
	}

	// Tick 2: same pair extends in place.
	te.tick(t0.Add(2*time.Second), snap())
	ss = te.sessions(t)
	if len(ss) != 1 {
		t.Fatalf("extension should not add rows, got %d", len(ss))
	}
	if ss[0].DurationSec != 1 {
		t.Fatalf("expected duration 1 after extension, got %d", ss[0].DurationSec)
	}

	// Tick 3: different process closes the Video session and opens Other.
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe", WindowTitle: "main.py - editor"}
	te.tick(t0.Add(3*time.Second), snap())

	ss = te.sessions(t)
	if len(ss) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(ss))
	}
	if ss[0].DurationSec != 2 {
		t.Fatalf("closed session duration = %d, want 2", ss[0].DurationSec)
	}
	if ss[1].Category != rules.OtherCategory || ss[1].ProcessName != "code.exe" {
		t.Fatalf("unexpected second session: %+v", ss[1])
	}
	if te.active == nil || te.active.id != ss[1].ID {
		t.Fatal("engine should own the new session")
	}
}

func TestTitleChangeOpensNewSession(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0

	te.probe.app = probe.ForegroundApp{ProcessName: "chrome.exe", WindowTitle: "Tab A"}
	te.tick(t0.Add(1*time.Second), snap())
	te.probe.app = probe.ForegroundApp{ProcessName: "chrome.exe", WindowTitle: "Tab B"}
	te.tick(t0.Add(2*time.Second), snap())

	ss := te.sessions(t)
	if len(ss) != 2 {
		t.Fatalf("title change should open a new session, got %d rows", len(ss))
	}
}

func TestEmptyProcessFallsBackToUnknown(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.app = probe.ForegroundApp{ProcessName: "", WindowTitle: ""}
	te.tick(t0.Add(1*time.Second), snap())

	ss := te.sessions(t)
	if len(ss) != 1 || ss[0].ProcessName != probe.UnknownProcess {
		t.Fatalf("expected %q process, got %+v", probe.UnknownProcess, ss)
	}
}

func TestDurationClampedOnBackwardsClock(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe"}
	te.tick(t0.Add(1*time.Second), snap())

	// Clock anomaly: close before the recorded start.
	te.mu.Lock()
	te.closeActiveLocked(t0.Add(-30 * time.Second))
	te.mu.Unlock()

	ss := te.sessions(t)
	if ss[0].DurationSec != 0 {
		t.Fatalf("duration should clamp to 0, got %d", ss[0].DurationSec)
	}
}

// ============================================================
// Idle handling
// ============================================================

func TestIdleClosesSessionAndRecordsGap(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe"}
	te.tick(t0.Add(1*time.Second), snap())

	// Idle reading jumps past the threshold with a 5s tick gap.
	te.probe.idleSec = 200
	te.tick(t0.Add(6*time.Second), snap())

	ss := te.sessions(t)
	if len(ss) != 2 {
		t.Fatalf("expected closed session + idle session, got %d rows", len(ss))
	}
	idleSess := ss[1]
	if idleSess.Category != rules.IdleCategory {
		t.Fatalf("expected Idle session, got %q", idleSess.Category)
	}
	if idleSess.DurationSec != 5 {
		t.Fatalf("idle session duration = %d, want 5", idleSess.DurationSec)
	}
	if !idleSess.End.Equal(t0.Add(6 * time.Second)) || !idleSess.Start.Equal(t0.Add(1*time.Second)) {
		t.Fatalf("idle session should span [now-gap, now]: %+v", idleSess)
	}
	if idleSess.ProcessName != "" || idleSess.WindowTitle != "" || idleSess.ExePath != "" {
		t.Fatalf("idle session should have empty app fields: %+v", idleSess)
	}
	if te.active != nil {
		t.Fatal("no session should remain open while idle")
	}
}

func TestIdleWithZeroGapRecordsNothing(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.idleSec = 600
	te.tick(t0, snap())

	if ss := te.sessions(t); len(ss) != 0 {
		t.Fatalf("zero gap should persist nothing, got %d rows", len(ss))
	}
}

func TestIdleTicksStayIdle(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.idleSec = 600

	te.tick(t0.Add(1*time.Second), snap())
	te.tick(t0.Add(2*time.Second), snap())

	ss := te.sessions(t)
	if len(ss) != 2 {
		t.Fatalf("each idle tick with gap > 0 records one idle row, got %d", len(ss))
	}
	for _, s := range ss {
		if s.Category != rules.IdleCategory || s.DurationSec != 1 {
			t.Fatalf("unexpected idle row: %+v", s)
		}
	}
}

func TestOversleptGapRecordsIdleOnActiveTick(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe"}
	te.tick(t0.Add(1*time.Second), snap())

	// Machine suspends for 60s with a 1s interval; next tick is active.
	te.tick(t0.Add(61*time.Second), snap())

	ss := te.sessions(t)
	if len(ss) != 3 {
		t.Fatalf("expected closed session + idle gap + new session, got %d rows", len(ss))
	}
	if ss[1].Category != rules.IdleCategory || ss[1].DurationSec != 60 {
		t.Fatalf("unexpected idle gap row: %+v", ss[1])
	}
	if ss[2].ProcessName != "code.exe" || ss[2].DurationSec != 0 {
		t.Fatalf("expected fresh session after gap: %+v", ss[2])
	}
}

func TestSmallGapDoesNotTriggerIdlePath(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe"}
	te.tick(t0.Add(1*time.Second), snap())

	// 3s gap with 1s interval: not strictly greater than 3x, so extend.
	te.tick(t0.Add(4*time.Second), snap())

	if ss := te.sessions(t); len(ss) != 1 {
		t.Fatalf("gap <= 3x interval should just extend, got %d rows", len(ss))
	}
}

// ============================================================
// Prompt policy
// ============================================================

func promptSnap() settings.Settings {
	s := settings.Defaults()
	s.PromptsEnabled = true
	s.FocusStart = settings.Clock{Hour: 9}
	s.FocusEnd = settings.Clock{Hour: 17}
	s.DistractionCategories = []string{"Social", "Video", "Gaming"}
	return s
}

func TestPromptFiresOnceOnOpen(t *testing.T) {
	te := newTestEngine(t)
	addRule(t, te.store, rules.Rule{
		Enabled: true, MatchType: rules.MatchSubstring,
		ProcessPattern: "discord.exe", Category: "Social", Priority: 1,
	})

	inWindow := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	te.lastTick = inWindow
	te.probe.app = probe.ForegroundApp{ProcessName: "discord.exe"}

	te.tick(inWindow.Add(1*time.Second), promptSnap())
	te.tick(inWindow.Add(2*time.Second), promptSnap()) // extension

	if got := te.promptCount(); got != 1 {
		t.Fatalf("prompt should fire exactly once, got %d", got)
	}
	var pn PromptNeeded
	for _, ev := range te.events {
		if p, ok := ev.(PromptNeeded); ok {
			pn = p
		}
	}
	if pn.Category != "Social" || pn.SessionID == 0 {
		t.Fatalf("unexpected prompt payload: %+v", pn)
	}
}

func TestNoPromptOutsideFocusWindow(t *testing.T) {
	te := newTestEngine(t)
	addRule(t, te.store, rules.Rule{
		Enabled: true, MatchType: rules.MatchSubstring,
		ProcessPattern: "discord.exe", Category: "Social", Priority: 1,
	})

	night := time.Date(2025, 6, 2, 22, 0, 0, 0, time.Local)
	te.lastTick = night
	te.probe.app = probe.ForegroundApp{ProcessName: "discord.exe"}
	te.tick(night.Add(1*time.Second), promptSnap())

	if got := te.promptCount(); got != 0 {
		t.Fatalf("prompt fired outside focus window: %d", got)
	}
}

func TestNoPromptForNonDistractionCategory(t *testing.T) {
	te := newTestEngine(t)
	inWindow := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	te.lastTick = inWindow
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe"}
	te.tick(inWindow.Add(1*time.Second), promptSnap()) // classifies as Other

	if got := te.promptCount(); got != 0 {
		t.Fatalf("prompt fired for non-distraction category: %d", got)
	}
}

func TestNoPromptWhenDisabled(t *testing.T) {
	te := newTestEngine(t)
	addRule(t, te.store, rules.Rule{
		Enabled: true, MatchType: rules.MatchSubstring,
		ProcessPattern: "discord.exe", Category: "Social", Priority: 1,
	})
	s := promptSnap()
	s.PromptsEnabled = false

	inWindow := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	te.lastTick = inWindow
	te.probe.app = probe.ForegroundApp{ProcessName: "discord.exe"}
	te.tick(inWindow.Add(1*time.Second), s)

	if got := te.promptCount(); got != 0 {
		t.Fatalf("prompt fired while disabled: %d", got)
	}
}

func TestPromptInsideWrappedFocusWindow(t *testing.T) {
	te := newTestEngine(t)
	addRule(t, te.store, rules.Rule{
		Enabled: true, MatchType: rules.MatchSubstring,
		ProcessPattern: "discord.exe", Category: "Social", Priority: 1,
	})
	s := promptSnap()
	s.FocusStart = settings.Clock{Hour: 22}
	s.FocusEnd = settings.Clock{Hour: 6}

	lateNight := time.Date(2025, 6, 2, 23, 30, 0, 0, time.Local)
	te.lastTick = lateNight
	te.probe.app = probe.ForegroundApp{ProcessName: "discord.exe"}
	te.tick(lateNight.Add(1*time.Second), s)

	if got := te.promptCount(); got != 1 {
		t.Fatalf("prompt should fire inside wrapped window, got %d", got)
	}
}

// ============================================================
// Intent tags
// ============================================================

func TestSetIntentTag(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.probe.app = probe.ForegroundApp{ProcessName: "discord.exe"}
	te.tick(t0.Add(1*time.Second), snap())

	ss := te.sessions(t)
	te.SetIntentTag(ss[0].ID, "Intentional break")

	got, err := te.store.GetSession(ss[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IntentTag == nil || *got.IntentTag != "Intentional break" {
		t.Fatalf("intent tag not applied: %+v", got.IntentTag)
	}
}

func TestSetIntentTagMissingSessionIsNoop(t *testing.T) {
	te := newTestEngine(t)
	te.SetIntentTag(9999, "whatever") // must not panic or log fatal
	if ss := te.sessions(t); len(ss) != 0 {
		t.Fatal("no-op intent update created rows")
	}
}

// ============================================================
// Pause / resume / stop
// ============================================================

func TestPauseClosesActiveSessionSynchronously(t *testing.T) {
	te := newTestEngine(t)
	te.lastTick = t0
	te.now = func() time.Time { return t0.Add(10 * time.Second) }
	te.probe.app = probe.ForegroundApp{ProcessName: "code.exe"}
	te.tick(t0.Add(1*time.Second), snap())

	te.state.Store(int32(stateRunning))
	te.Pause()

	ss := te.sessions(t)
	if len(ss) != 1 {
		t.Fatalf("expected 1 session, got %d", len(ss))
	}
	if ss[0].DurationSec != 9 {
		t.Fatalf("pause should finalize duration, got %d", ss[0].DurationSec)
	}
	if te.active != nil {
		t.Fatal("pause must release the active session")
	}

	last := te.events[len(te.events)-1]
	if sc, ok := last.(StatusChanged); !ok || sc.Status != StatusPaused {
		t.Fatalf("expected StatusChanged(Paused), got %#v", last)
	}
}

func TestPauseWithNoActiveSessionIsNoop(t *testing.T) {
	te := newTestEngine(t)
	te.state.Store(int32(stateRunning))
	te.Pause()
	if ss := te.sessions(t); len(ss) != 0 {
		t.Fatal("pause with no session wrote rows")
	}
}

func TestResumeOnlyFromPaused(t *testing.T) {
	te := newTestEngine(t)
	te.state.Store(int32(stateStopped))
	te.Resume()
	if runState(te.state.Load()) != stateStopped {
		t.Fatal("resume should not revive a stopped engine")
	}

	te.state.Store(int32(statePaused))
	te.Resume()
	if runState(te.state.Load()) != stateRunning {
		t.Fatal("resume from paused should run")
	}
}

func TestControllerStopExitsPromptly(t *testing.T) {
	te := newTestEngine(t)
	c := NewController(te.Engine)
	c.Start()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop within one sleep slice")
	}
}
