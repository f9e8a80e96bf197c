package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/models"
)

func TestCreateUser(t *testing.T) {
	repo := new(database.MockRepository)
	repo.On("CreateUser", mock.Anything, models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}).
		Return(models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/users/", `{"_id":"u1","name":"Alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "u1", user.ID)
	repo.AssertExpectations(t)
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := new(database.MockRepository)
	repo.On("CreateUser", mock.Anything, mock.Anything).
		Return(models.User{}, database.ErrDuplicate)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/users/", `{"_id":"u1","name":"Alice","email":"alice@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already exists")
}

func TestCreateUserMissingFields(t *testing.T) {
	repo := new(database.MockRepository)
	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPost, "/api/users/", `{"name":"Alice"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestGetUserNotFound(t *testing.T) {
	repo := new(database.MockRepository)
	repo.On("GetUser", mock.Anything, "missing").Return(models.User{}, database.ErrNotFound)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodGet, "/api/users/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateUser(t *testing.T) {
	name := "New Name"

	repo := new(database.MockRepository)
	repo.On("UpdateUser", mock.Anything, "u1", database.UpdateUserParams{Name: &name}).
		Return(models.User{ID: "u1", Name: name}, nil)

	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, "/api/users/u1", `{"name":"New Name"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, name, user.Name)
}

func TestUpdateUserNoFields(t *testing.T) {
	repo := new(database.MockRepository)
	_, router := newTestRouter(t, repo)

	rr := doJSON(router, http.MethodPatch, "/api/users/u1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
