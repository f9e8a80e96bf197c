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

func (h *Handlers) ListGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	members, err := h.repo.MembersByGroup(r.Context(), groupID)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusOK, members)
}

func (h *Handlers) ListUserMemberships(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.repo.MembershipsByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusOK, memberships)
}

func (h *Handlers) CreateMember(w http.ResponseWriter, r *http.Request) {
	type createMemberRequest struct {
		GroupID string `json:"groupId" validate:"required"`
		UserID  string `json:"userId" validate:"required"`
		IsAdmin bool   `json:"isAdmin"`
	}

	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "groupId and userId are required")
		return
	}

	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	member, err := h.repo.CreateMember(r.Context(), models.GroupMember{
		GroupID: groupID,
		UserID:  req.UserID,
		IsAdmin: req.IsAdmin,
	})
	if errors.Is(err, database.ErrDuplicate) {
		h.respondError(w, http.StatusBadRequest, "member already added")
		return
	}
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusCreated, member)
}

// UpdateMember flips moderation flags. Only a group admin or the group
// creator may moderate. Flag changes are pushed to the target's
// personal channel, the target's client flips its own state.
func (h *Handlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	type updateMemberRequest struct {
		ActorID  string `json:"actorId" validate:"required"`
		IsAdmin  *bool  `json:"isAdmin"`
		IsBanned *bool  `json:"isBanned"`
		IsMuted  *bool  `json:"isMuted"`
	}

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "actorId is required")
		return
	}
	if req.IsAdmin == nil && req.IsBanned == nil && req.IsMuted == nil {
		h.respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if !h.authorizeActor(r, req.ActorID) {
		h.respondError(w, http.StatusForbidden, "cannot moderate as another user")
		return
	}

	member, err := h.repo.GetMemberByID(r.Context(), memberID)
	if err != nil {
		h.respondRepoError(w, err, "member not found")
		return
	}

	allowed, err := h.canModerate(r, member.GroupID, req.ActorID)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !allowed {
		h.respondError(w, http.StatusForbidden, "only an admin or the creator can moderate members")
		return
	}

	member, err = h.repo.UpdateMemberFlags(r.Context(), memberID, database.UpdateMemberParams{
		IsAdmin:  req.IsAdmin,
		IsBanned: req.IsBanned,
		IsMuted:  req.IsMuted,
	})
	if err != nil {
		h.respondRepoError(w, err, "member not found")
		return
	}

	h.notifyModeration(member, req.IsBanned, req.IsMuted)

	h.respondJSON(w, http.StatusOK, member)
}

func (h *Handlers) canModerate(r *http.Request, groupID primitive.ObjectID, actorID string) (bool, error) {
	group, err := h.repo.GetGroup(r.Context(), groupID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return false, err
	}
	if err == nil && group.CreatedBy == actorID {
		return true, nil
	}

	actor, err := h.repo.FindMember(r.Context(), groupID, actorID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return actor.IsAdmin, nil
}

type moderationPayload struct {
	UserID string `json:"userId"`
	Action string `json:"action"`
}

func (h *Handlers) notifyModeration(member models.GroupMember, isBanned, isMuted *bool) {
	channel := hub.UserChannel(member.UserID)

	if isBanned != nil {
		action := "unban"
		if *isBanned {
			action = "ban"
		}
		if err := h.hub.Emit(hub.EventMemberBanned, channel, moderationPayload{UserID: member.UserID, Action: action}); err != nil {
			h.sugar.Error(err)
		}
	}

	if isMuted != nil {
		action := "unmute"
		if *isMuted {
			action = "mute"
		}
		if err := h.hub.Emit(hub.EventMemberMuted, channel, moderationPayload{UserID: member.UserID, Action: action}); err != nil {
			h.sugar.Error(err)
		}
	}
}

// DeleteMember removes a membership record and tells the removed user
// over their personal channel only. The group channel stays quiet, the
// target may no longer be allowed to read it.
func (h *Handlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := h.repo.GetMemberByID(r.Context(), memberID)
	if err != nil {
		h.respondRepoError(w, err, "member not found")
		return
	}

	if err := h.repo.DeleteMember(r.Context(), memberID); err != nil {
		h.respondRepoError(w, err, "member not found")
		return
	}

	if err := h.hub.Emit(hub.EventRemovedFromGroup, hub.UserChannel(member.UserID), member.GroupID.Hex()); err != nil {
		h.sugar.Error(err)
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}
