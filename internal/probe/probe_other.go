//go:build !windows

package probe

// stubProbe keeps the tracker runnable on platforms without input
// hooking: every observation is the Unknown sentinel and the user is
// never considered idle.
type stubProbe struct{}

func newPlatformProbe() Probe {
	return stubProbe{}
}

func (stubProbe) ForegroundApp() ForegroundApp {
	return ForegroundApp{ProcessName: UnknownProcess}
}

func (stubProbe) IdleSeconds() int {
	return 0
}
