// Package tracker samples the OS probe on a fixed cadence, classifies
// each observation through the rule set, and maintains at most one open
// session in the store at a time.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/timesink/internal/idle"
	"github.com/sadopc/timesink/internal/probe"
	"github.com/sadopc/timesink/internal/rules"
	"github.com/sadopc/timesink/internal/settings"
	"github.com/sadopc/timesink/internal/store"
)

type runState int32

const (
	stateRunning runState = iota
	statePaused
	stateStopped
)

const (
	// pauseSlice is how long the loop naps between run-state checks
	// while paused; stop latency is bounded by one slice.
	pauseSlice = 500 * time.Millisecond
	stopSlice  = 250 * time.Millisecond
)

// activeSession is the engine's handle on the one open session row.
type activeSession struct {
	id       int64
	start    time.Time
	process  string
	title    string
	exePath  string
	category string
}

// Engine owns the sampling loop. Only the engine opens, extends, or
// closes sessions; Pause may close the open session from another
// goroutine, so session transitions are serialized by mu.
type Engine struct {
	store    *store.Store
	settings *settings.Service
	probe    probe.Probe
	logger   *log.Logger
	now      func() time.Time

	state atomic.Int32

	mu       sync.Mutex
	active   *activeSession
	lastTick time.Time

	subMu sync.Mutex
	subs  []func(Event)
}

func NewEngine(st *store.Store, svc *settings.Service, p probe.Probe, logger *log.Logger) *Engine {
	return &Engine{
		store:    st,
		settings: svc,
		probe:    p,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers fn for every future event. Subscribers must not
// block; they are invoked synchronously from the emitting goroutine.
func (e *Engine) Subscribe(fn func(Event)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, fn)
}

func (e *Engine) emit(ev Event) {
	e.subMu.Lock()
	subs := make([]func(Event), len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Run executes the sampling loop until Stop. It is meant to run on its
// own goroutine; use Controller for lifecycle plumbing.
func (e *Engine) Run() {
	e.emit(StatusChanged{Status: StatusRunning})
	e.mu.Lock()
	e.lastTick = e.now()
	e.mu.Unlock()

	for {
		switch runState(e.state.Load()) {
		case stateStopped:
			return
		case statePaused:
			time.Sleep(pauseSlice)
			continue
		}

		snap := e.settings.Snapshot()
		e.tick(e.now(), snap)
		e.sleep(snap.SamplingInterval())
	}
}

// sleep waits for the sampling interval in short slices so a stop
// request is honored within one slice.
func (e *Engine) sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		if runState(e.state.Load()) == stateStopped {
			return
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if remaining > stopSlice {
			remaining = stopSlice
		}
		time.Sleep(remaining)
	}
}

// Pause stops sampling and closes any open session synchronously on the
// caller's goroutine. Safe to call while a tick is in flight.
func (e *Engine) Pause() {
	if !e.state.CompareAndSwap(int32(stateRunning), int32(statePaused)) {
		return
	}
	e.mu.Lock()
	closed := e.closeActiveLocked(e.now())
	e.mu.Unlock()
	if closed {
		e.emit(SessionsChanged{})
	}
	e.emit(StatusChanged{Status: StatusPaused})
}

func (e *Engine) Resume() {
	if !e.state.CompareAndSwap(int32(statePaused), int32(stateRunning)) {
		return
	}
	e.emit(StatusChanged{Status: StatusRunning})
}

// Stop requests a cooperative shutdown; the loop exits within one sleep
// slice. The open session, if any, is closed by the final Pause-like
// write in Close.
func (e *Engine) Stop() {
	e.state.Store(int32(stateStopped))
}

// Close finalizes the open session after the loop has exited.
func (e *Engine) Close() {
	e.mu.Lock()
	closed := e.closeActiveLocked(e.now())
	e.mu.Unlock()
	if closed {
		e.emit(SessionsChanged{})
	}
}

// SetIntentTag applies a prompt response to a session. The session may
// already be closed or even deleted by retention cleanup; a missing id
// is a no-op.
func (e *Engine) SetIntentTag(sessionID int64, intent string) {
	if err := e.store.UpdateSessionIntent(sessionID, intent); err != nil {
		e.logger.Error("update intent tag", "session", sessionID, "err", err)
	}
}

// tick runs one full sample-classify-persist cycle. gap is the wall
// clock elapsed since the previous tick, measured with Go's monotonic
// reading.
func (e *Engine) tick(now time.Time, snap settings.Settings) {
	e.mu.Lock()
	gap := int(now.Sub(e.lastTick).Seconds())
	e.lastTick = now
	e.mu.Unlock()
	if gap < 0 {
		gap = 0
	}

	status := idle.Evaluate(e.probe.IdleSeconds, snap.IdleThresholdSec())
	if status.Idle {
		e.mu.Lock()
		closed := e.closeActiveLocked(now)
		e.mu.Unlock()
		if closed {
			e.emit(SessionsChanged{})
		}
		if gap > 0 {
			e.recordIdleGap(now, gap)
		}
		return
	}

	// The loop overslept (suspend, or an idle stretch just ended):
	// whatever happened since the last tick was not foreground work.
	interval := int(snap.SamplingInterval() / time.Second)
	if gap > interval*3 {
		e.mu.Lock()
		closed := e.closeActiveLocked(now)
		e.mu.Unlock()
		if closed {
			e.emit(SessionsChanged{})
		}
		e.recordIdleGap(now, gap)
	}

	e.trackForeground(now, snap)
}

func (e *Engine) trackForeground(now time.Time, snap settings.Settings) {
	app := e.probe.ForegroundApp()
	rs, err := e.store.ListRules()
	if err != nil {
		e.logger.Error("list rules", "err", err)
	}
	category := rules.Apply(rs, rules.AppContext{
		ProcessName: app.ProcessName,
		WindowTitle: app.WindowTitle,
	})

	e.mu.Lock()
	switch {
	case e.active == nil:
		opened := e.openSessionLocked(now, app, category)
		e.mu.Unlock()
		e.afterOpen(opened, now, category, snap)

	case e.active.process != app.ProcessName || e.active.title != app.WindowTitle:
		e.closeActiveLocked(now)
		opened := e.openSessionLocked(now, app, category)
		e.mu.Unlock()
		e.emit(SessionsChanged{})
		e.afterOpen(opened, now, category, snap)

	default:
		extended := e.extendActiveLocked(now)
		e.mu.Unlock()
		if extended {
			e.emit(SessionsChanged{})
		}
	}
}

// afterOpen emits the open notification and evaluates the prompt
// policy. Extensions never re-prompt.
func (e *Engine) afterOpen(sessionID int64, now time.Time, category string, snap settings.Settings) {
	if sessionID == 0 {
		return
	}
	e.emit(SessionsChanged{})
	if e.shouldPrompt(category, now, snap) {
		e.emit(PromptNeeded{SessionID: sessionID, Category: category})
	}
}

// openSessionLocked persists a fresh session row and takes ownership of
// it. Returns 0 when the write failed; the tick carries on and the next
// tick will try again.
func (e *Engine) openSessionLocked(now time.Time, app probe.ForegroundApp, category string) int64 {
	process := app.ProcessName
	if process == "" {
		process = probe.UnknownProcess
	}
	id, err := e.store.AddSession(store.Session{
		Start:       now,
		End:         now,
		DurationSec: 0,
		ProcessName: process,
		ExePath:     app.ExePath,
		WindowTitle: app.WindowTitle,
		Category:    category,
	})
	if err != nil {
		e.logger.Error("open session", "process", process, "err", err)
		return 0
	}
	e.active = &activeSession{
		id:       id,
		start:    now,
		process:  process,
		title:    app.WindowTitle,
		exePath:  app.ExePath,
		category: category,
	}
	return id
}

// closeActiveLocked writes the final end/duration for the open session
// and releases it. Reports whether a session was closed.
func (e *Engine) closeActiveLocked(now time.Time) bool {
	if e.active == nil {
		return false
	}
	if err := e.store.UpdateSessionEnd(e.active.id, now, clampedDuration(e.active.start, now)); err != nil {
		e.logger.Error("close session", "session", e.active.id, "err", err)
	}
	e.active = nil
	return true
}

func (e *Engine) extendActiveLocked(now time.Time) bool {
	if e.active == nil {
		return false
	}
	if err := e.store.UpdateSessionEnd(e.active.id, now, clampedDuration(e.active.start, now)); err != nil {
		e.logger.Error("extend session", "session", e.active.id, "err", err)
		return false
	}
	return true
}

// recordIdleGap persists one synthetic Idle session spanning exactly
// the last gap seconds ending at now.
func (e *Engine) recordIdleGap(now time.Time, gap int) {
	start := now.Add(-time.Duration(gap) * time.Second)
	_, err := e.store.AddSession(store.Session{
		Start:       start,
		End:         now,
		DurationSec: int64(gap),
		Category:    rules.IdleCategory,
	})
	if err != nil {
		e.logger.Error("record idle gap", "seconds", gap, "err", err)
		return
	}
	e.emit(SessionsChanged{})
}

func (e *Engine) shouldPrompt(category string, now time.Time, snap settings.Settings) bool {
	if !snap.PromptsEnabled {
		return false
	}
	if !snap.IsDistraction(category) {
		return false
	}
	return snap.InFocusWindow(now.Local())
}

// clampedDuration is floor(end-start) in whole seconds, never negative
// even when the clock jumps backwards.
func clampedDuration(start, end time.Time) int64 {
	d := int64(end.Sub(start).Seconds())
	if d < 0 {
		return 0
	}
	return d
}
