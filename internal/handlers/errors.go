package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"groupchat-backend/internal/database"
)

type errorResponse struct {
	Message string `json:"message"`
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.sugar.Error(err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Message: message})
}

// respondRepoError maps gateway errors onto the REST taxonomy. Unknown
// ids become 404, everything unexpected is a 500.
func (h *Handlers) respondRepoError(w http.ResponseWriter, err error, notFoundMessage string) {
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, notFoundMessage)
		return
	}

	h.sugar.Error(err)
	h.respondError(w, http.StatusInternalServerError, "internal error")
}
