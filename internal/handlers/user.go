package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/models"
)

// CreateUser registers a user under the identifier the identity
// provider issued. Registration is idempotent from the client's point
// of view only in that a duplicate is reported, never overwritten.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	type createUserRequest struct {
		ID    string `json:"_id" validate:"required"`
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required"`
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "_id, name and email are required")
		return
	}

	user, err := h.repo.CreateUser(r.Context(), models.User{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
	})
	if errors.Is(err, database.ErrDuplicate) {
		h.respondError(w, http.StatusBadRequest, "user already exists")
		return
	}
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusCreated, user)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.repo.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondRepoError(w, err, "user not found")
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	type updateUserRequest struct {
		Name    *string `json:"name"`
		IconURL *string `json:"iconUrl"`
		Bio     *string `json:"bio"`
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == nil && req.IconURL == nil && req.Bio == nil {
		h.respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if !h.authorizeActor(r, userID) {
		h.respondError(w, http.StatusForbidden, "cannot edit another user's profile")
		return
	}

	user, err := h.repo.UpdateUser(r.Context(), userID, database.UpdateUserParams{
		Name:    req.Name,
		IconURL: req.IconURL,
		Bio:     req.Bio,
	})
	if err != nil {
		h.respondRepoError(w, err, "user not found")
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}
