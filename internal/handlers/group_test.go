package handlers

import (
	"encoding/json"
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

func TestCreateGroupRequiresName(t *testing.T) {
	repo := new(database.MockRepository)
	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/groups/", `{"createdBy":"u1","members":["u2"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	repo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything)
}

func TestCreateGroupBackfillsMembers(t *testing.T) {
	groupID := primitive.NewObjectID()
	created := models.Group{
		ID:        groupID,
		Name:      "team",
		Members:   []string{"u2", "u3"},
		CreatedBy: "u1",
		Type:      models.GroupTypeGroup,
	}

	repo := new(database.MockRepository)
	repo.On("CreateGroup", mock.Anything, mock.Anything).Return(created, nil)
	repo.On("CreateMember", mock.Anything, mock.MatchedBy(func(m models.GroupMember) bool {
		return m.UserID == "u1" && m.IsAdmin
	})).Return(models.GroupMember{}, nil).Once()
	repo.On("CreateMember", mock.Anything, mock.MatchedBy(func(m models.GroupMember) bool {
		return !m.IsAdmin
	})).Return(models.GroupMember{}, nil).Twice()

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/groups/", `{"name":"team","createdBy":"u1","members":["u2","u3"]}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	repo.AssertExpectations(t)
}

func TestCreatePrivateGroupReusesExistingPair(t *testing.T) {
	existing := models.Group{
		ID:        primitive.NewObjectID(),
		Members:   []string{"u1", "u2"},
		CreatedBy: "u1",
		Type:      models.GroupTypePrivate,
	}

	repo := new(database.MockRepository)
	repo.On("FindPrivateGroup", mock.Anything, "u1", "u2").Return(existing, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/groups/", `{"createdBy":"u1","type":"private","members":["u1","u2"]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var group models.Group
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &group))
	assert.Equal(t, existing.ID, group.ID)
	repo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything)
}

func TestCreatePrivateGroupRequiresTwoMembers(t *testing.T) {
	repo := new(database.MockRepository)
	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/groups/", `{"createdBy":"u1","type":"private","members":["u1","u2","u3"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListGroupsWithUnreadCounts(t *testing.T) {
	groupID := primitive.NewObjectID()
	groups := []models.Group{{ID: groupID, Name: "team", CreatedBy: "u1", Type: models.GroupTypeGroup}}

	repo := new(database.MockRepository)
	repo.On("GroupsForUser", mock.Anything, "u1").Return(groups, nil)
	repo.On("CountUnread", mock.Anything, groupID, "u1").Return(int64(3), nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodGet, "/api/groups/?userId=u1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var listed []models.GroupWithUnread
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, int64(3), listed[0].UnreadCount)
}

func TestDeleteGroupOnlyCreator(t *testing.T) {
	groupID := primitive.NewObjectID()
	group := models.Group{ID: groupID, CreatedBy: "u1", Members: []string{"u2"}}

	repo := new(database.MockRepository)
	repo.On("GetGroup", mock.Anything, groupID).Return(group, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodDelete, fmt.Sprintf("/api/groups/%s", groupID.Hex()), `{"userId":"u2"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	repo.AssertNotCalled(t, "DeleteGroup", mock.Anything, mock.Anything)
}

func TestDeleteGroupCascades(t *testing.T) {
	groupID := primitive.NewObjectID()
	group := models.Group{ID: groupID, CreatedBy: "u1", Members: []string{"u2"}}

	repo := new(database.MockRepository)
	repo.On("GetGroup", mock.Anything, groupID).Return(group, nil)
	repo.On("DeleteGroup", mock.Anything, groupID).Return(nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodDelete, fmt.Sprintf("/api/groups/%s", groupID.Hex()), `{"userId":"u1"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	repo.AssertExpectations(t)
}

func TestUpdateGroupMembersKeepsPrivateInvariant(t *testing.T) {
	groupID := primitive.NewObjectID()
	group := models.Group{ID: groupID, CreatedBy: "u1", Members: []string{"u1", "u2"}, Type: models.GroupTypePrivate}

	repo := new(database.MockRepository)
	repo.On("GetGroup", mock.Anything, groupID).Return(group, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, fmt.Sprintf("/api/groups/%s/members", groupID.Hex()), `{"members":["u1","u2","u3"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	repo.AssertNotCalled(t, "UpdateGroupMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchUsers(t *testing.T) {
	repo := new(database.MockRepository)
	repo.On("SearchUsers", mock.Anything, "ali").
		Return([]models.User{{ID: "u1", Name: "Alice"}}, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodGet, "/api/groups/search-users?q=ali", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var summaries []models.UserSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "u1", summaries[0].UID)
}
