package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/hub"
	"groupchat-backend/internal/models"
)

const (
	maxUploadSize  = 5 << 20 // 5 MB
	uploadTimeout  = 30 * time.Second
	gifSearchLimit = 20
)

var allowedMimeTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"application/pdf": true,
}

// CreateMessage accepts a multipart send: group, sender, optional text
// and optional file. Moderation flags are checked before anything is
// uploaded or persisted.
func (h *Handlers) CreateMessage(w http.ResponseWriter, r *http.Request) {
	// reserve some headroom for the non-file form fields
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+512*1024)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the 5 MB limit")
			return
		}
		h.respondError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	groupHex := r.FormValue("group")
	sender := r.FormValue("sender")
	text := r.FormValue("text")
	tempID := r.FormValue("tempId")

	if groupHex == "" || sender == "" {
		h.respondError(w, http.StatusBadRequest, "group and sender are required")
		return
	}

	groupID, err := primitive.ObjectIDFromHex(groupHex)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	if !h.authorizeActor(r, sender) {
		h.respondError(w, http.StatusForbidden, "cannot send as another user")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	hasFile := err == nil
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		h.respondError(w, http.StatusBadRequest, "malformed file field")
		return
	}
	if hasFile {
		defer file.Close()
	}

	if text == "" && !hasFile {
		h.respondError(w, http.StatusBadRequest, "text or file is required")
		return
	}

	if status, message := h.checkSendAllowed(r.Context(), groupID, sender); status != 0 {
		h.respondError(w, status, message)
		return
	}

	msg := models.Message{
		Group:  groupID,
		Sender: sender,
		Text:   text,
		ReadBy: []string{sender},
	}

	if hasFile {
		if fileHeader.Size > maxUploadSize {
			h.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the 5 MB limit")
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if !allowedMimeTypes[contentType] {
			h.respondError(w, http.StatusBadRequest, "unsupported file type")
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			h.sugar.Error(err)
			h.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		uploadCtx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
		defer cancel()

		fileUrl, err := h.uploader.Upload(uploadCtx, fileHeader.Filename, contentType, data)
		if err != nil {
			h.sugar.Error(err)
			h.respondError(w, http.StatusInternalServerError, "file upload failed")
			return
		}

		msg.FileURL = fileUrl
		msg.FileType = contentType
		msg.FileName = fileHeader.Filename
	}

	h.persistAndFanOut(w, r, msg, tempID)
}

// CreateGifMessage records a message whose attachment already lives at
// the GIF provider, only the URL is stored.
func (h *Handlers) CreateGifMessage(w http.ResponseWriter, r *http.Request) {
	type gifMessageRequest struct {
		Group    string `json:"group" validate:"required"`
		Sender   string `json:"sender" validate:"required"`
		FileURL  string `json:"fileUrl" validate:"required"`
		GifQuery string `json:"gifQuery"`
		TempID   string `json:"tempId"`
	}

	var req gifMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "group, sender and fileUrl are required")
		return
	}

	groupID, err := primitive.ObjectIDFromHex(req.Group)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	if !h.authorizeActor(r, req.Sender) {
		h.respondError(w, http.StatusForbidden, "cannot send as another user")
		return
	}

	if status, message := h.checkSendAllowed(r.Context(), groupID, req.Sender); status != 0 {
		h.respondError(w, status, message)
		return
	}

	h.persistAndFanOut(w, r, models.Message{
		Group:    groupID,
		Sender:   req.Sender,
		FileURL:  req.FileURL,
		FileType: "image/gif",
		GifQuery: req.GifQuery,
		ReadBy:   []string{req.Sender},
	}, req.TempID)
}

// checkSendAllowed consults the moderation store before any write. A
// zero status means the send may proceed.
func (h *Handlers) checkSendAllowed(ctx context.Context, groupID primitive.ObjectID, sender string) (int, string) {
	member, err := h.repo.FindMember(ctx, groupID, sender)
	if errors.Is(err, database.ErrNotFound) {
		return http.StatusForbidden, "not a member of this group"
	}
	if err != nil {
		h.sugar.Error(err)
		return http.StatusInternalServerError, "internal error"
	}
	if member.IsBanned {
		return http.StatusForbidden, "banned from this group"
	}
	if member.IsMuted {
		return http.StatusForbidden, "muted in this group"
	}
	return 0, ""
}

func (h *Handlers) persistAndFanOut(w http.ResponseWriter, r *http.Request, msg models.Message, tempID string) {
	msg, err := h.repo.CreateMessage(r.Context(), msg)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	err = h.hub.Emit(hub.EventMessageReceived, hub.GroupChannel(msg.Group), hub.MessageReceivedPayload{
		GroupID: msg.Group.Hex(),
		Message: msg,
		TempID:  tempID,
	})
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusCreated, msg)
}

// GetGroupMessages returns the full history in send order. This is the
// recovery path for clients that missed live fan-out.
func (h *Handlers) GetGroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	// banned members lose access to group content
	if userID := r.URL.Query().Get("userId"); userID != "" {
		member, err := h.repo.FindMember(r.Context(), groupID, userID)
		if err == nil && member.IsBanned {
			h.respondError(w, http.StatusForbidden, "banned from this group")
			return
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			h.sugar.Error(err)
			h.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	messages, err := h.repo.MessagesByGroup(r.Context(), groupID)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusOK, messages)
}

// MarkMessageRead appends the caller to the message's readBy set and
// rebroadcasts the updated message. Calling it again for the same pair
// returns the unchanged message without a broadcast.
func (h *Handlers) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	messageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	msg, err := h.repo.GetMessage(r.Context(), messageID)
	if err != nil {
		h.respondRepoError(w, err, "message not found")
		return
	}

	alreadyRead := false
	for _, id := range msg.ReadBy {
		if id == req.UserID {
			alreadyRead = true
			break
		}
	}

	if !alreadyRead {
		msg, err = h.repo.AddReadReceipt(r.Context(), messageID, req.UserID)
		if err != nil {
			h.respondRepoError(w, err, "message not found")
			return
		}

		if err := h.hub.Emit(hub.EventReadStatusUpdated, hub.GroupChannel(msg.Group), msg); err != nil {
			h.sugar.Error(err)
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (h *Handlers) SearchMessages(w http.ResponseWriter, r *http.Request) {
	groupHex := r.URL.Query().Get("groupId")
	query := r.URL.Query().Get("query")
	if groupHex == "" || query == "" {
		h.respondError(w, http.StatusBadRequest, "groupId and query are required")
		return
	}

	groupID, err := primitive.ObjectIDFromHex(groupHex)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	messages, err := h.repo.SearchMessages(r.Context(), groupID, query)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusOK, messages)
}

func (h *Handlers) SearchGifs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	urls, err := h.gifClient.Search(r.Context(), query, gifSearchLimit)
	if err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "gif search failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string][]string{"results": urls})
}
