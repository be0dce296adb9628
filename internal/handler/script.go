package handler

import (
	"errors"
	"log"
	"net/http"

	"redcode-api/internal/script"
	"redcode-api/pkg/response"
)

// ScriptHandler serves the control script to in-game executors.
type ScriptHandler struct {
	source script.Source
}

// NewScriptHandler creates a new script handler.
func NewScriptHandler(source script.Source) *ScriptHandler {
	return &ScriptHandler{source: source}
}

// Get handles GET /api/script
func (h *ScriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !script.IsExecutorRequest(r) {
		log.Printf("[Script] Denied %s (UA %q)", r.RemoteAddr, r.UserAgent())
		response.Text(w, http.StatusForbidden, "Access Denied")
		return
	}

	data, err := h.source.Load(r.Context())
	if err != nil {
		if !errors.Is(err, script.ErrScriptNotFound) {
			log.Printf("[Script] Failed to load from %s: %v", h.source.Name(), err)
		}
		response.Text(w, http.StatusInternalServerError, "Script not found")
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	response.Text(w, http.StatusOK, string(data))
}
