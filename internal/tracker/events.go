package tracker

// Event is a typed notification emitted by the engine. Subscribers
// receive events in emission order; ordering across subscribers is
// unspecified.
type Event interface {
	trackerEvent()
}

// SessionsChanged fires on every session open, extension, and close.
type SessionsChanged struct{}

// PromptNeeded fires when a distraction-category session opens inside
// the focus window. The response, if any, arrives later through
// SetIntentTag.
type PromptNeeded struct {
	SessionID int64
	Category  string
}

// StatusChanged carries the engine's human-readable run status.
type StatusChanged struct {
	Status string
}

func (SessionsChanged) trackerEvent() {}
func (PromptNeeded) trackerEvent()    {}
func (StatusChanged) trackerEvent()   {}

// Run status texts.
const (
	StatusRunning = "Running"
	StatusPaused  = "Paused"
)
