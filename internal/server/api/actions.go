package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultActionLimit = 50
	maxActionLimit     = 1000
)

// ActionsHandler serves the action history.
// Expected paths: /api/actions?limit=N or /api/actions/{id}
type ActionsHandler struct {
	store *store.Store
}

// NewActionsHandler creates a new ActionsHandler with the given store.
func NewActionsHandler(s *store.Store) *ActionsHandler {
	return &ActionsHandler{store: s}
}

type listActionsResponse struct {
	Actions []*store.ActionRecord `json:"actions"`
}

func (h *ActionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/actions"), "/")
	if id != "" {
		h.get(w, id)
		return
	}
	h.list(w, r)
}

// list handles GET /api/actions, newest first.
func (h *ActionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultActionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxActionLimit)
	}

	records, err := h.store.Actions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	if records == nil {
		records = []*store.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, listActionsResponse{Actions: records})
}

// get handles GET /api/actions/{id}.
func (h *ActionsHandler) get(w http.ResponseWriter, id string) {
	rec, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
