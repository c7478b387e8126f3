// Package probe reads the current foreground application and the time
// since last user input from the operating system. Probe calls never
// fail: when the OS refuses to answer they degrade to empty fields or a
// zero reading so a sampling tick can always complete.
package probe

// UnknownProcess is reported when a foreground window exists but its
// owning process cannot be resolved.
const UnknownProcess = "Unknown"

// ForegroundApp describes the window that currently has input focus.
type ForegroundApp struct {
	ProcessName string
	WindowTitle string
	ExePath     string
}

// Probe is the OS collaborator the tracking engine samples each tick.
type Probe interface {
	// ForegroundApp returns the focused application. Empty fields and
	// the UnknownProcess sentinel are valid fallbacks, never an error.
	ForegroundApp() ForegroundApp

	// IdleSeconds returns whole seconds since the last user input,
	// or 0 when the OS cannot say.
	IdleSeconds() int
}

// New returns the probe for the current platform.
func New() Probe {
	return newPlatformProbe()
}
