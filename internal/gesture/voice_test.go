package gesture

import (
	"testing"

	"github.com/ayusman/mudra/internal/action"
)

func TestVoiceRouter_Route(t *testing.T) {
	tests := []struct {
		phrase string
		want   action.Event
		ok     bool
	}{
		{"siguiente", action.New(action.SwipeNext), true},
		{"haz scroll", action.New(action.SwipeNext), true},
		{"atrás por favor", action.New(action.SwipePrev), true},
		{"el anterior", action.New(action.SwipePrev), true},
		{"me gusta este video", action.New(action.DoubleTap), true},
		{"like", action.New(action.DoubleTap), true},
		{"pausa", action.New(action.Tap), true},
		{"play", action.New(action.Tap), true},
		{"reproduce", action.New(action.Tap), true},
		{"silencio", action.New(action.VolumeDown), true},
		{"mutear", action.New(action.VolumeDown), true},
		{"compartir", action.At(0.9, 0.5), true},
		{"guardar", action.New(action.LongPress), true},
		{"favorito", action.New(action.LongPress), true},
		{"abre comentario", action.At(0.9, 0.7), true},
		{"pausa y guardar", action.New(action.Tap), true},
		{"siguiente y atrás", action.New(action.SwipeNext), true},
		{"  SIGUIENTE  ", action.New(action.SwipeNext), true},
		{"hola mundo", action.Event{}, false},
		{"", action.Event{}, false},
	}

	r := NewVoiceRouter(nil, nil)
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, ok := r.Route(tt.phrase)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestVoiceRouter_Switch(t *testing.T) {
	sw := NewSwitch(false)
	r := NewVoiceRouter(sw, nil)

	if _, ok := r.Route("siguiente"); ok {
		t.Error("disabled router should not emit")
	}

	sw.Set(true)
	if !sw.Enabled() {
		t.Fatal("expected switch to be enabled")
	}
	if _, ok := r.Route("siguiente"); !ok {
		t.Error("enabled router should emit")
	}
}

func TestCommands(t *testing.T) {
	cmds := Commands()
	if len(cmds) != 9 {
		t.Fatalf("expected 9 rules, got %d", len(cmds))
	}
	if cmds[0].Event.Kind != action.SwipeNext {
		t.Errorf("expected first rule to be swipe_next, got %v", cmds[0].Event)
	}

	cmds[0].Keywords[0] = "changed"
	if Commands()[0].Keywords[0] != "siguiente" {
		t.Error("Commands should return a copy")
	}
}
