// Package idle converts a raw idle-seconds probe reading into an
// idle/active signal against a configured threshold.
package idle

// Status is the result of one idle evaluation.
type Status struct {
	Seconds int
	Idle    bool
}

// Evaluate reads the probe once and compares it to thresholdSec.
// Negative or garbage readings are clamped to 0 so a broken probe can
// never report idle time going backwards.
func Evaluate(probe func() int, thresholdSec int) Status {
	secs := probe()
	if secs < 0 {
		secs = 0
	}
	return Status{Seconds: secs, Idle: secs >= thresholdSec}
}
