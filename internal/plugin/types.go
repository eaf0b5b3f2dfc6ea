// Package plugin runs adapter plugins when the classified motion state changes.
// A plugin is an executable that reads one JSON Request on stdin and writes
// one JSON Response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
	// Events lists the transitions the plugin expects to be bound to.
	// It is informational; bindings decide what actually runs.
	Events       []string        `json:"events,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// HasAction reports whether the manifest declares action.
func (m Manifest) HasAction(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action string `json:"action"`
	// Event is the transition that triggered the call, e.g. "adapt_started".
	Event  string          `json:"event"`
	Seq    uint64          `json:"seq"`
	Config json.RawMessage `json:"config,omitempty"`
	// State is the engine snapshot of the triggering tick.
	State json.RawMessage `json:"state,omitempty"`
}

// Response is read back from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
