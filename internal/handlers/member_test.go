package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/models"
)

func TestCreateMemberDuplicate(t *testing.T) {
	groupID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	repo.On("CreateMember", mock.Anything, mock.Anything).
		Return(models.GroupMember{}, database.ErrDuplicate)

	_, router := newTestRouter(t, repo)

	body := fmt.Sprintf(`{"groupId":"%s","userId":"u2"}`, groupID.Hex())
	rr := doJSON(router, http.MethodPost, "/api/groupmembers/", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already added")
}

func TestUpdateMemberRequiresModerator(t *testing.T) {
	groupID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	target := models.GroupMember{ID: memberID, GroupID: groupID, UserID: "u3"}

	repo := new(database.MockRepository)
	repo.On("GetMemberByID", mock.Anything, memberID).Return(target, nil)
	repo.On("GetGroup", mock.Anything, groupID).
		Return(models.Group{ID: groupID, CreatedBy: "u1"}, nil)
	repo.On("FindMember", mock.Anything, groupID, "u2").
		Return(models.GroupMember{GroupID: groupID, UserID: "u2", IsAdmin: false}, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, fmt.Sprintf("/api/groupmembers/%s", memberID.Hex()), `{"actorId":"u2","isBanned":true}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	repo.AssertNotCalled(t, "UpdateMemberFlags", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateMemberBanByCreator(t *testing.T) {
	groupID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	target := models.GroupMember{ID: memberID, GroupID: groupID, UserID: "u3"}
	banned := target
	banned.IsBanned = true

	repo := new(database.MockRepository)
	repo.On("GetMemberByID", mock.Anything, memberID).Return(target, nil)
	repo.On("GetGroup", mock.Anything, groupID).
		Return(models.Group{ID: groupID, CreatedBy: "u1"}, nil)
	repo.On("UpdateMemberFlags", mock.Anything, memberID, mock.MatchedBy(func(p database.UpdateMemberParams) bool {
		return p.IsBanned != nil && *p.IsBanned
	})).Return(banned, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, fmt.Sprintf("/api/groupmembers/%s", memberID.Hex()), `{"actorId":"u1","isBanned":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	repo.AssertExpectations(t)
}

func TestUpdateMemberRequiresActor(t *testing.T) {
	memberID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, fmt.Sprintf("/api/groupmembers/%s", memberID.Hex()), `{"isBanned":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateMemberNoFields(t *testing.T) {
	memberID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, fmt.Sprintf("/api/groupmembers/%s", memberID.Hex()), `{"actorId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteMember(t *testing.T) {
	groupID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	target := models.GroupMember{ID: memberID, GroupID: groupID, UserID: "u3"}

	repo := new(database.MockRepository)
	repo.On("GetMemberByID", mock.Anything, memberID).Return(target, nil)
	repo.On("DeleteMember", mock.Anything, memberID).Return(nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodDelete, fmt.Sprintf("/api/groupmembers/%s", memberID.Hex()), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	repo.AssertExpectations(t)
}

func TestDeleteMemberNotFound(t *testing.T) {
	memberID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	repo.On("GetMemberByID", mock.Anything, memberID).
		Return(models.GroupMember{}, database.ErrNotFound)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodDelete, fmt.Sprintf("/api/groupmembers/%s", memberID.Hex()), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
