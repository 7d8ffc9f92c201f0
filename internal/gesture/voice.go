package gesture

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/action"
)

// Switch enables or disables the voice modality. It is safe for concurrent use.
type Switch struct {
	enabled atomic.Bool
}

// NewSwitch returns a Switch in the given state.
func NewSwitch(enabled bool) *Switch {
	s := &Switch{}
	s.enabled.Store(enabled)
	return s
}

// Enabled reports whether voice commands are accepted.
func (s *Switch) Enabled() bool {
	return s.enabled.Load()
}

// Set changes the switch state.
func (s *Switch) Set(enabled bool) {
	s.enabled.Store(enabled)
}

// VoiceCommand is one keyword rule of the router.
type VoiceCommand struct {
	Keywords []string     `json:"keywords"`
	Event    action.Event `json:"action"`
}

// voiceCommands is evaluated in order; the first rule with a matching
// keyword wins. Matching is by substring, so "anterior" also fires inside
// longer words.
var voiceCommands = []VoiceCommand{
	{Keywords: []string{"siguiente", "scroll"}, Event: action.New(action.SwipeNext)},
	{Keywords: []string{"atrás", "anterior"}, Event: action.New(action.SwipePrev)},
	{Keywords: []string{"like", "me gusta"}, Event: action.New(action.DoubleTap)},
	{Keywords: []string{"pausa"}, Event: action.New(action.Tap)},
	{Keywords: []string{"play", "reproduce"}, Event: action.New(action.Tap)},
	{Keywords: []string{"silencio", "mutear"}, Event: action.New(action.VolumeDown)},
	{Keywords: []string{"compartir"}, Event: action.At(0.9, 0.5)},
	{Keywords: []string{"guardar", "favorito"}, Event: action.New(action.LongPress)},
	{Keywords: []string{"comentario"}, Event: action.At(0.9, 0.7)},
}

// Commands returns a copy of the keyword table in evaluation order.
func Commands() []VoiceCommand {
	out := make([]VoiceCommand, len(voiceCommands))
	for i, c := range voiceCommands {
		out[i] = VoiceCommand{
			Keywords: append([]string(nil), c.Keywords...),
			Event:    c.Event,
		}
	}
	return out
}

// VoiceRouter maps recognized phrases to actions. It holds no state besides
// the enable switch.
type VoiceRouter struct {
	sw     *Switch
	logger *slog.Logger
}

// NewVoiceRouter creates a router controlled by sw. A nil sw means always
// enabled; a nil logger discards unmatched phrases silently.
func NewVoiceRouter(sw *Switch, logger *slog.Logger) *VoiceRouter {
	return &VoiceRouter{sw: sw, logger: logger}
}

// Route returns the action for phrase, if any rule matches.
func (r *VoiceRouter) Route(phrase string) (action.Event, bool) {
	if r.sw != nil && !r.sw.Enabled() {
		return action.Event{}, false
	}

	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return action.Event{}, false
	}

	for _, c := range voiceCommands {
		for _, kw := range c.Keywords {
			if strings.Contains(phrase, kw) {
				return c.Event, true
			}
		}
	}

	if r.logger != nil {
		r.logger.Debug("voice phrase not recognized", "phrase", phrase)
	}
	return action.Event{}, false
}
