// Package api provides HTTP API handlers for the mudra gesture controller.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/status"
)

// Controller is the part of the running app the handlers drive.
type Controller interface {
	Feed(s gesture.Sample) (action.Event, bool, error)
	Status() status.Update
	Sessions() []app.SessionInfo
	StartSession(src action.Source) bool
	StopSession(src action.Source) bool
	VoiceEnabled() bool
	SetVoiceEnabled(enabled bool) error
	DetectionEnabled() bool
	SetDetectionEnabled(enabled bool) error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
