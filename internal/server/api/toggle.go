package api

import (
	"net/http"
)

// ToggleHandler exposes an on/off switch as GET and PUT of {"enabled": bool}.
type ToggleHandler struct {
	name string
	get  func() bool
	set  func(bool) error
}

// NewToggleHandler creates a ToggleHandler. name is used in error messages.
func NewToggleHandler(name string, get func() bool, set func(bool) error) *ToggleHandler {
	return &ToggleHandler{name: name, get: get, set: set}
}

// NewVoiceHandler serves /api/voice.
func NewVoiceHandler(ctrl Controller) *ToggleHandler {
	return NewToggleHandler("voice", ctrl.VoiceEnabled, ctrl.SetVoiceEnabled)
}

// NewDetectionHandler serves /api/detection.
func NewDetectionHandler(ctrl Controller) *ToggleHandler {
	return NewToggleHandler("detection", ctrl.DetectionEnabled, ctrl.SetDetectionEnabled)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

type toggleResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *ToggleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toggleResponse{Enabled: h.get()})
	case http.MethodPut:
		var req toggleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		// The switch flips even when persisting it fails.
		if err := h.set(*req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save "+h.name+" setting")
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{Enabled: h.get()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
