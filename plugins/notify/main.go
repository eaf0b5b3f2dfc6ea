// Package main provides a notification plugin for macOS.
// It shows a system notification when the user starts or stops walking or
// carrying something, via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
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

// NotifyParams is the per-binding configuration of the notify action.
type NotifyParams struct {
	Title string `json:"title"`
	// Message overrides the text derived from the event.
	Message string `json:"message"`
	Sound   string `json:"sound"`
}

// eventMessages maps transition events to notification text.
var eventMessages = map[string]string{
	"walking_started":     "Walking detected",
	"walking_stopped":     "Stopped walking",
	"encumbrance_started": "Hand is busy",
	"encumbrance_stopped": "Hand is free",
	"adapt_started":       "Switched to compact layout",
	"adapt_stopped":       "Switched to full layout",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "notify" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	var p NotifyParams
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &p); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}
	if p.Title == "" {
		p.Title = "gaitgrip"
	}
	if p.Message == "" {
		msg, ok := eventMessages[req.Event]
		if !ok {
			writeErrorResponse(fmt.Sprintf("no message for event %q", req.Event))
			return
		}
		p.Message = msg
	}

	if err := runAppleScript(buildNotificationScript(p)); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// buildNotificationScript generates the AppleScript for p.
func buildNotificationScript(p NotifyParams) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(p.Message), escape(p.Title))
	if p.Sound != "" {
		script += fmt.Sprintf(` sound name "%s"`, escape(p.Sound))
	}
	return script
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
