package tray

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/status"
)

type fakeControls struct {
	voice, detection bool
	err              error
}

func (c *fakeControls) VoiceEnabled() bool { return c.voice }
func (c *fakeControls) SetVoiceEnabled(on bool) error {
	c.voice = on
	return c.err
}
func (c *fakeControls) DetectionEnabled() bool { return c.detection }
func (c *fakeControls) SetDetectionEnabled(on bool) error {
	c.detection = on
	return c.err
}

func TestTray_Toggles(t *testing.T) {
	t.Run("flip voice and detection before the menu exists", func(t *testing.T) {
		ctrl := &fakeControls{voice: true, detection: true}
		tr := New(ctrl, nil)

		tr.toggleVoice()
		if ctrl.voice {
			t.Error("voice still on after toggle")
		}
		tr.toggleDetection()
		tr.toggleDetection()
		if !ctrl.detection {
			t.Error("detection should be back on after two toggles")
		}
	})

	t.Run("persist failure still flips the switch", func(t *testing.T) {
		ctrl := &fakeControls{voice: true, err: errors.New("disk full")}
		New(ctrl, nil).toggleVoice()
		if ctrl.voice {
			t.Error("voice still on")
		}
	})
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(&fakeControls{}, nil)

	opened := false
	tr.OnOpen(func() { opened = true })
	tr.call(func() func() { return tr.onOpen })
	if !opened {
		t.Error("open callback not called")
	}

	// No quit callback registered.
	tr.call(func() func() { return tr.onQuit })
}

func TestTray_Follow(t *testing.T) {
	tr := New(&fakeControls{}, nil)

	updates := make(chan status.Update, 2)
	updates <- status.Update{Text: "Pinched!"}
	close(updates)

	done := make(chan struct{})
	go func() {
		tr.Follow(context.Background(), updates)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after updates closed")
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{toggleTitle("Voice", true), "● Voice on"},
		{toggleTitle("Camera", false), "○ Camera off"},
		{statusTitle(""), "Status: starting"},
		{statusTitle("Ready"), "Status: Ready"},
		{lastTitle(""), "Last: none"},
		{lastTitle("Next"), "Last: Next"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
