package tray

import "github.com/ayusman/gaitgrip/internal/engine"

// Status is the part of a snapshot the tray displays.
type Status struct {
	Walking    bool
	Encumbered bool
	GripHeld   bool
	PinchHeld  bool
	Adapt      bool
}

// StatusOf extracts the tray status from snap.
func StatusOf(snap engine.Snapshot) Status {
	return Status{
		Walking:    snap.Locomotion.IsWalking,
		Encumbered: snap.Encumbrance.IsEncumbered,
		GripHeld:   snap.Encumbrance.GripHeld,
		PinchHeld:  snap.Encumbrance.PinchHeld,
		Adapt:      snap.Adapt,
	}
}

// Title is the short text next to the tray icon.
func (s Status) Title() string {
	if s.Adapt {
		return "gaitgrip ◆"
	}
	return "gaitgrip"
}

// WalkingLabel describes the locomotion state.
func (s Status) WalkingLabel() string {
	if s.Walking {
		return "Walking"
	}
	return "Standing"
}

// EncumbranceLabel describes the hand state.
func (s Status) EncumbranceLabel() string {
	switch {
	case s.Encumbered && s.GripHeld:
		return "Hands: gripping"
	case s.Encumbered:
		return "Hands: busy"
	case s.PinchHeld:
		return "Hands: pinching"
	default:
		return "Hands: free"
	}
}
