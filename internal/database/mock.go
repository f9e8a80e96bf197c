package database

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"groupchat-backend/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, id string, params UpdateUserParams) (models.User, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockRepository) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockRepository) CreateGroup(ctx context.Context, group models.Group) (models.Group, error) {
	args := m.Called(ctx, group)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *MockRepository) GetGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *MockRepository) FindPrivateGroup(ctx context.Context, userA, userB string) (models.Group, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *MockRepository) GroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Group), args.Error(1)
}

func (m *MockRepository) UpdateGroupMembers(ctx context.Context, id primitive.ObjectID, members []string) (models.Group, error) {
	args := m.Called(ctx, id, members)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *MockRepository) DeleteGroup(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateMember(ctx context.Context, member models.GroupMember) (models.GroupMember, error) {
	args := m.Called(ctx, member)
	return args.Get(0).(models.GroupMember), args.Error(1)
}

func (m *MockRepository) GetMemberByID(ctx context.Context, id primitive.ObjectID) (models.GroupMember, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.GroupMember), args.Error(1)
}

func (m *MockRepository) FindMember(ctx context.Context, groupID primitive.ObjectID, userID string) (models.GroupMember, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Get(0).(models.GroupMember), args.Error(1)
}

func (m *MockRepository) MembersByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.MemberWithUser, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]models.MemberWithUser), args.Error(1)
}

func (m *MockRepository) MembershipsByUser(ctx context.Context, userID string) ([]models.MembershipWithGroup, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.MembershipWithGroup), args.Error(1)
}

func (m *MockRepository) UpdateMemberFlags(ctx context.Context, id primitive.ObjectID, params UpdateMemberParams) (models.GroupMember, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(models.GroupMember), args.Error(1)
}

func (m *MockRepository) DeleteMember(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockRepository) GetMessage(ctx context.Context, id primitive.ObjectID) (models.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockRepository) MessagesByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockRepository) AddReadReceipt(ctx context.Context, id primitive.ObjectID, userID string) (models.Message, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockRepository) SearchMessages(ctx context.Context, groupID primitive.ObjectID, query string) ([]models.Message, error) {
	args := m.Called(ctx, groupID, query)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockRepository) CountUnread(ctx context.Context, groupID primitive.ObjectID, userID string) (int64, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Get(0).(int64), args.Error(1)
}
