// Package plugin discovers external executables and runs them with a JSON
// request on stdin and a JSON response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string          `json:"action"`
	Source string          `json:"source,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Actions understood by input-injection plugins.
const (
	ActionStatus     = "status"
	ActionSwipe      = "swipe"
	ActionTap        = "tap"
	ActionVolumeDown = "volume_down"
)

// SwipeParams moves one finger from (X1,Y1) to (X2,Y2). Coordinates are
// normalized to the screen size.
type SwipeParams struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	DurationMs int64   `json:"duration_ms"`
}

// TapParams presses at the normalized position (X,Y) for DurationMs.
type TapParams struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	DurationMs int64   `json:"duration_ms"`
}
