package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
)

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	ctrl Controller
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(ctrl Controller) *StatusHandler {
	return &StatusHandler{ctrl: ctrl}
}

type statusResponse struct {
	Status           string            `json:"status"`
	At               time.Time         `json:"at"`
	VoiceEnabled     bool              `json:"voice_enabled"`
	DetectionEnabled bool              `json:"detection_enabled"`
	Sessions         []app.SessionInfo `json:"sessions"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := h.ctrl.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:           st.Text,
		At:               st.At,
		VoiceEnabled:     h.ctrl.VoiceEnabled(),
		DetectionEnabled: h.ctrl.DetectionEnabled(),
		Sessions:         h.ctrl.Sessions(),
	})
}

// SessionsHandler starts and stops modality sessions.
// Expected paths: /api/sessions, /api/sessions/{source}/start, /api/sessions/{source}/stop
type SessionsHandler struct {
	ctrl Controller
}

// NewSessionsHandler creates a new SessionsHandler.
func NewSessionsHandler(ctrl Controller) *SessionsHandler {
	return &SessionsHandler{ctrl: ctrl}
}

type sessionChangeResponse struct {
	Changed bool            `json:"changed"`
	Session app.SessionInfo `json:"session"`
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": h.ctrl.Sessions()})
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	src, ok := action.ParseSource(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown modality")
		return
	}

	var changed bool
	switch parts[1] {
	case "start":
		changed = h.ctrl.StartSession(src)
	case "stop":
		changed = h.ctrl.StopSession(src)
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	resp := sessionChangeResponse{Changed: changed}
	for _, info := range h.ctrl.Sessions() {
		if info.Source == src {
			resp.Session = info
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
