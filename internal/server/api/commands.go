package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
)

// HandleCommands lists the voice keyword table in evaluation order.
func HandleCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"commands": gesture.Commands()})
}
