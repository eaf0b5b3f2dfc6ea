// Package main provides the ui-adapter plugin.
// It records the interface layout a front end should show: "compact" while the
// user walks or carries something, "expand" once both hands and attention are free.
// The layout is written to a JSON file the front end watches.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Event  string          `json:"event"`
	Seq    uint64          `json:"seq"`
	Config json.RawMessage `json:"config"`
	State  json.RawMessage `json:"state"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	// StateFile is where the layout is written. Relative paths resolve against
	// the plugin directory.
	StateFile string `json:"state_file"`
	// Layout overrides the layout name written for compact, e.g. "thumb-reach".
	Layout string `json:"layout"`
}

// Layout is the document written to the state file.
type Layout struct {
	Layout    string    `json:"layout"`
	Event     string    `json:"event"`
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

const defaultStateFile = "layout.json"

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	var layout string
	switch req.Action {
	case "compact":
		layout = "compact"
		if cfg.Layout != "" {
			layout = cfg.Layout
		}
	case "expand":
		layout = "full"
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	doc := Layout{Layout: layout, Event: req.Event, Seq: req.Seq, UpdatedAt: time.Now().UTC()}
	if err := writeLayout(stateFile(cfg), doc); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"layout": layout})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func stateFile(cfg Config) string {
	if cfg.StateFile == "" {
		return defaultStateFile
	}
	return cfg.StateFile
}

// writeLayout replaces path atomically so readers never see a partial file.
func writeLayout(path string, doc Layout) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".layout-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}
