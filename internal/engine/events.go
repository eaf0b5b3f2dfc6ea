package engine

// EventKind names a state transition.
type EventKind string

const (
	WalkingStarted     EventKind = "walking_started"
	WalkingStopped     EventKind = "walking_stopped"
	EncumbranceStarted EventKind = "encumbrance_started"
	EncumbranceStopped EventKind = "encumbrance_stopped"
	// AdaptStarted and AdaptStopped follow the combined Adapt flag.
	AdaptStarted EventKind = "adapt_started"
	AdaptStopped EventKind = "adapt_stopped"
)

// Event is a transition observed between two consecutive snapshots.
type Event struct {
	Kind EventKind `json:"kind"`
	Seq  uint64    `json:"seq"`
}

// Transitions lists the events between prev and next, in a fixed order:
// walking, encumbrance, adapt.
func Transitions(prev, next Snapshot) []Event {
	var events []Event
	add := func(was, is bool, on, off EventKind) {
		switch {
		case !was && is:
			events = append(events, Event{Kind: on, Seq: next.Seq})
		case was && !is:
			events = append(events, Event{Kind: off, Seq: next.Seq})
		}
	}
	add(prev.Locomotion.IsWalking, next.Locomotion.IsWalking, WalkingStarted, WalkingStopped)
	add(prev.Encumbrance.IsEncumbered, next.Encumbrance.IsEncumbered, EncumbranceStarted, EncumbranceStopped)
	add(prev.Adapt, next.Adapt, AdaptStarted, AdaptStopped)
	return events
}

// Valid reports whether k is one of the known transition kinds.
func (k EventKind) Valid() bool {
	switch k {
	case WalkingStarted, WalkingStopped, EncumbranceStarted, EncumbranceStopped, AdaptStarted, AdaptStopped:
		return true
	}
	return false
}
