// Package tray provides the system tray interface for the mudra gesture controller.
package tray

import (
	"context"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/status"
)

// Controls are the switches the tray flips.
type Controls interface {
	VoiceEnabled() bool
	SetVoiceEnabled(enabled bool) error
	DetectionEnabled() bool
	SetDetectionEnabled(enabled bool) error
}

// Tray represents the system tray application.
type Tray struct {
	ctrl   Controls
	logger *slog.Logger

	mu     sync.RWMutex
	onOpen func()
	onQuit func()

	// Menu items stored for later updates
	menuStatus    *systray.MenuItem
	menuLast      *systray.MenuItem
	menuDetection *systray.MenuItem
	menuVoice     *systray.MenuItem
}

// New creates a new Tray driving ctrl.
func New(ctrl Controls, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{ctrl: ctrl, logger: logger}
}

// OnOpen sets the callback for the "Open Web UI" menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// Follow mirrors status updates into the status line until ctx is
// cancelled or updates is closed.
func (t *Tray) Follow(ctx context.Context, updates <-chan status.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			t.SetStatus(u.Text)
		}
	}
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture control")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(statusTitle(""), "Current status")
	t.menuStatus.Disable()
	t.menuLast = systray.AddMenuItem(lastTitle(""), "Last dispatched action")
	t.menuLast.Disable()
	systray.AddSeparator()

	t.menuDetection = systray.AddMenuItem(toggleTitle("Camera", t.ctrl.DetectionEnabled()), "Pause or resume face and hand gestures")
	t.menuVoice = systray.AddMenuItem(toggleTitle("Voice", t.ctrl.VoiceEnabled()), "Turn voice commands on or off")
	systray.AddSeparator()
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open Web UI...", "Open the control page in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuDetection.ClickedCh:
				t.toggleDetection()
			case <-t.menuVoice.ClickedCh:
				t.toggleVoice()
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) toggleDetection() {
	enabled := !t.ctrl.DetectionEnabled()
	if err := t.ctrl.SetDetectionEnabled(enabled); err != nil {
		t.logger.Warn("saving detection switch", "error", err)
	}
	title := toggleTitle("Camera", t.ctrl.DetectionEnabled())
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.setTitleLocked(t.menuDetection, title)
}

func (t *Tray) toggleVoice() {
	enabled := !t.ctrl.VoiceEnabled()
	if err := t.ctrl.SetVoiceEnabled(enabled); err != nil {
		t.logger.Warn("saving voice switch", "error", err)
	}
	title := toggleTitle("Voice", t.ctrl.VoiceEnabled())
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.setTitleLocked(t.menuVoice, title)
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SetStatus updates the status line.
func (t *Tray) SetStatus(text string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.setTitleLocked(t.menuStatus, statusTitle(text))
}

// SetLastAction updates the last action display in the menu.
func (t *Tray) SetLastAction(label string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.setTitleLocked(t.menuLast, lastTitle(label))
}

// setTitleLocked is a no-op before the menu is built.
func (t *Tray) setTitleLocked(item *systray.MenuItem, title string) {
	if item != nil {
		item.SetTitle(title)
	}
}

func toggleTitle(name string, on bool) string {
	if on {
		return "● " + name + " on"
	}
	return "○ " + name + " off"
}

func statusTitle(text string) string {
	if text == "" {
		return "Status: starting"
	}
	return "Status: " + text
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}
