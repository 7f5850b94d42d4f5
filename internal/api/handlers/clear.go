package handlers

import (
	"fmt"
	"net/http"
)

// ClearHandler serves POST /clear. Clearing is advisory: the server keeps the
// stored conversation, and the client starts fresh by switching to a new
// session_id. The endpoint only acknowledges the signal.
type ClearHandler struct{}

// NewClearHandler creates a ClearHandler.
func NewClearHandler() *ClearHandler {
	return &ClearHandler{}
}

type clearResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Clear acknowledges a context-clear signal for an optional session_id.
func (h *ClearHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID := r.FormValue("session_id")

	if sessionID == "" {
		writeJSON(w, http.StatusOK, clearResponse{
			Message: "Context clear signaled. Please use a new session_id for the next chat message to start fresh.",
		})
		return
	}

	writeJSON(w, http.StatusOK, clearResponse{
		Message:   fmt.Sprintf("Session %s context clear signaled. Please use a new session_id for the next chat message to start fresh.", sessionID),
		SessionID: sessionID,
	})
}
