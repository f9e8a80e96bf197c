package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/hub"
	"groupchat-backend/internal/models"
)

// CreateGroup creates a group and its membership records. Private
// groups hold exactly two members and are deduplicated per unordered
// pair: asking for an existing pair returns the existing group.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	type createGroupRequest struct {
		Name      string   `json:"name"`
		Members   []string `json:"members"`
		CreatedBy string   `json:"createdBy" validate:"required"`
		Type      string   `json:"type"`
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "createdBy is required")
		return
	}
	if !h.authorizeActor(r, req.CreatedBy) {
		h.respondError(w, http.StatusForbidden, "cannot create a group as another user")
		return
	}

	if req.Type == "" {
		req.Type = models.GroupTypeGroup
	}

	switch req.Type {
	case models.GroupTypeGroup:
		if req.Name == "" {
			h.respondError(w, http.StatusBadRequest, "group name is required")
			return
		}
	case models.GroupTypePrivate:
		if len(req.Members) != 2 {
			h.respondError(w, http.StatusBadRequest, "a private group has exactly 2 members")
			return
		}

		existing, err := h.repo.FindPrivateGroup(r.Context(), req.Members[0], req.Members[1])
		if err == nil {
			h.respondJSON(w, http.StatusOK, existing)
			return
		}
		if !errors.Is(err, database.ErrNotFound) {
			h.sugar.Error(err)
			h.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
	default:
		h.respondError(w, http.StatusBadRequest, "unknown group type")
		return
	}

	group, err := h.repo.CreateGroup(r.Context(), models.Group{
		Name:      req.Name,
		Members:   req.Members,
		CreatedBy: req.CreatedBy,
		Type:      req.Type,
	})
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.createMemberRecords(r, group)

	h.respondJSON(w, http.StatusCreated, group)
}

// createMemberRecords backfills the moderation store for a group's
// member list. The creator is an admin, everyone else starts with
// clean flags. Records that already exist are left alone.
func (h *Handlers) createMemberRecords(r *http.Request, group models.Group) {
	seen := map[string]bool{}
	members := append([]string{group.CreatedBy}, group.Members...)

	for _, userID := range members {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		_, err := h.repo.CreateMember(r.Context(), models.GroupMember{
			GroupID: group.ID,
			UserID:  userID,
			IsAdmin: userID == group.CreatedBy,
		})
		if err != nil && !errors.Is(err, database.ErrDuplicate) {
			h.sugar.Error(err)
		}
	}
}

// ListGroups returns the caller's groups, each with an unread count
// computed from readBy.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	groups, err := h.repo.GroupsForUser(r.Context(), userID)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	withUnread := make([]models.GroupWithUnread, 0, len(groups))
	for _, group := range groups {
		unread, err := h.repo.CountUnread(r.Context(), group.ID, userID)
		if err != nil {
			h.sugar.Error(err)
			h.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		withUnread = append(withUnread, models.GroupWithUnread{Group: group, UnreadCount: unread})
	}

	h.respondJSON(w, http.StatusOK, withUnread)
}

// DeleteGroup removes a group, cascading to its messages and member
// records. Only the creator may delete. Every member's personal
// channel is told so open views of the group get closed.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	group, err := h.repo.GetGroup(r.Context(), groupID)
	if err != nil {
		h.respondRepoError(w, err, "group not found")
		return
	}

	if group.CreatedBy != req.UserID || !h.authorizeActor(r, req.UserID) {
		h.respondError(w, http.StatusForbidden, "only the creator can delete a group")
		return
	}

	if err := h.repo.DeleteGroup(r.Context(), groupID); err != nil {
		h.respondRepoError(w, err, "group not found")
		return
	}

	for _, member := range group.Members {
		if err := h.hub.Emit(hub.EventRemovedFromGroup, hub.UserChannel(member), groupID.Hex()); err != nil {
			h.sugar.Error(err)
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "group and its messages deleted"})
}

// UpdateGroupMembers replaces the group's member list. The private
// two-member invariant cannot be broken through this endpoint.
func (h *Handlers) UpdateGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req struct {
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Members == nil {
		h.respondError(w, http.StatusBadRequest, "members is required")
		return
	}

	group, err := h.repo.GetGroup(r.Context(), groupID)
	if err != nil {
		h.respondRepoError(w, err, "group not found")
		return
	}
	if group.Type == models.GroupTypePrivate && len(req.Members) != 2 {
		h.respondError(w, http.StatusBadRequest, "a private group has exactly 2 members")
		return
	}

	group, err = h.repo.UpdateGroupMembers(r.Context(), groupID, req.Members)
	if err != nil {
		h.respondRepoError(w, err, "group not found")
		return
	}

	h.createMemberRecords(r, group)

	h.respondJSON(w, http.StatusOK, group)
}

func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	users, err := h.repo.SearchUsers(r.Context(), query)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, models.UserSummary{ID: user.ID, Name: user.Name, UID: user.ID})
	}

	h.respondJSON(w, http.StatusOK, summaries)
}
