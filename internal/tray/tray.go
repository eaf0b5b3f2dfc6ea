// Package tray provides a system tray status indicator for gaitgrip.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/log"
)

// Tray shows the classifier state in the system tray and toggles recording.
// It is an engine.Sink; menu titles change only on transitions.
type Tray struct {
	onRecord   func(recording bool) error
	onSettings func()
	onQuit     func()
	recording  bool
	status     Status
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuRecord      *systray.MenuItem
	menuWalking     *systray.MenuItem
	menuEncumbrance *systray.MenuItem
}

// New creates a new Tray instance with recording off.
func New() *Tray {
	return &Tray{}
}

// OnRecord sets the callback run when recording is toggled. If it returns an
// error the toggle is undone.
func (t *Tray) OnRecord(fn func(recording bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecord = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	t.mu.Lock()
	st := t.status
	t.mu.Unlock()

	systray.SetTitle(st.Title())
	systray.SetTooltip("gaitgrip motion state")

	t.mu.Lock()
	t.menuWalking = systray.AddMenuItem(st.WalkingLabel(), "Locomotion state")
	t.menuWalking.Disable()
	t.menuEncumbrance = systray.AddMenuItem(st.EncumbranceLabel(), "Hand state")
	t.menuEncumbrance.Disable()
	systray.AddSeparator()

	t.menuRecord = systray.AddMenuItem(recordLabel(t.recording), "Start or stop a telemetry session")
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit gaitgrip")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuRecord.ClickedCh:
				t.handleRecord()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func recordLabel(recording bool) string {
	if recording {
		return "● Recording"
	}
	return "○ Record Session"
}

// handleRecord handles the record menu item click.
func (t *Tray) handleRecord() {
	t.mu.Lock()
	t.recording = !t.recording
	recording := t.recording
	callback := t.onRecord
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(recording); err != nil {
			log.Warn("recording toggle failed", "recording", recording, "error", err)
			t.mu.Lock()
			t.recording = !recording
			recording = t.recording
			t.mu.Unlock()
		}
	}

	t.mu.RLock()
	if t.menuRecord != nil {
		t.menuRecord.SetTitle(recordLabel(recording))
	}
	t.mu.RUnlock()
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRecording updates the record toggle without running the callback.
func (t *Tray) SetRecording(recording bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = recording
	if t.menuRecord != nil {
		t.menuRecord.SetTitle(recordLabel(recording))
	}
}

// IsRecording returns the current record toggle state.
func (t *Tray) IsRecording() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recording
}

// Publish implements engine.Sink. Ticks without transitions only update the
// cached status.
func (t *Tray) Publish(snap engine.Snapshot, events []engine.Event) {
	st := StatusOf(snap)

	t.mu.Lock()
	t.status = st
	walking, hands := t.menuWalking, t.menuEncumbrance
	t.mu.Unlock()

	if len(events) == 0 || walking == nil {
		return
	}
	systray.SetTitle(st.Title())
	walking.SetTitle(st.WalkingLabel())
	hands.SetTitle(st.EncumbranceLabel())
}

// Status returns the state shown by the tray.
func (t *Tray) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
