// Package tray provides a system tray menu showing the connection state of a
// running session.
package tray

import (
	"context"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/eyecontrol/internal/status"
)

// refreshInterval is how often the connection line is redrawn.
const refreshInterval = 2 * time.Second

// Tray represents the system tray application.
type Tray struct {
	title   string
	tracker *status.Tracker
	onQuit  func()
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuStatus      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuPause       *systray.MenuItem
}

// New creates a Tray titled title that reads and pauses tracker.
func New(title string, tracker *status.Tracker) *Tray {
	return &Tray{title: title, tracker: tracker}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application and blocks until Quit is clicked or
// ctx ends. It must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() { t.onReady(ctx) }, func() {})
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady(ctx context.Context) {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.title + " eye gesture control")

	snap := t.tracker.Snapshot()

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(StatusTitle(snap.Connected), "Microcontroller connection")
	t.menuStatus.Disable()
	t.menuLastGesture = systray.AddMenuItem(LastTitle(snap.LastGesture), "Last delivered gesture")
	t.menuLastGesture.Disable()
	systray.AddSeparator()
	t.menuPause = systray.AddMenuItem(PauseTitle(snap.Paused), "Pause or resume deliveries")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit "+t.title)
	t.mu.Unlock()

	t.tracker.OnChange(t.update)

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.update(t.tracker.Snapshot())
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handlePause flips the paused flag and redraws the menu.
func (t *Tray) handlePause() {
	t.tracker.TogglePaused()
	t.update(t.tracker.Snapshot())
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

// update redraws the menu from snap.
func (t *Tray) update(snap status.Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus == nil {
		return
	}
	t.menuStatus.SetTitle(StatusTitle(snap.Connected))
	t.menuLastGesture.SetTitle(LastTitle(snap.LastGesture))
	t.menuPause.SetTitle(PauseTitle(snap.Paused))
}

// StatusTitle is the connection menu line.
func StatusTitle(connected bool) string {
	if connected {
		return "● Connected"
	}
	return "○ Disconnected"
}

// LastTitle is the last gesture menu line.
func LastTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}

// PauseTitle is the label of the pause toggle.
func PauseTitle(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}
