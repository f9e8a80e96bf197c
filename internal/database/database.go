package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"groupchat-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type UpdateUserParams struct {
	Name    *string
	IconURL *string
	Bio     *string
}

type UpdateMemberParams struct {
	IsAdmin  *bool
	IsBanned *bool
	IsMuted  *bool
}

// Repository is the persistence gateway. Every operation is a single
// document read or write, there are no multi-document transactions.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	CreateGroup(ctx context.Context, group models.Group) (models.Group, error)
	GetGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	FindPrivateGroup(ctx context.Context, userA, userB string) (models.Group, error)
	GroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	UpdateGroupMembers(ctx context.Context, id primitive.ObjectID, members []string) (models.Group, error)
	DeleteGroup(ctx context.Context, id primitive.ObjectID) error

	CreateMember(ctx context.Context, member models.GroupMember) (models.GroupMember, error)
	GetMemberByID(ctx context.Context, id primitive.ObjectID) (models.GroupMember, error)
	FindMember(ctx context.Context, groupID primitive.ObjectID, userID string) (models.GroupMember, error)
	MembersByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.MemberWithUser, error)
	MembershipsByUser(ctx context.Context, userID string) ([]models.MembershipWithGroup, error)
	UpdateMemberFlags(ctx context.Context, id primitive.ObjectID, params UpdateMemberParams) (models.GroupMember, error)
	DeleteMember(ctx context.Context, id primitive.ObjectID) error

	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, id primitive.ObjectID) (models.Message, error)
	MessagesByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Message, error)
	AddReadReceipt(ctx context.Context, id primitive.ObjectID, userID string) (models.Message, error)
	SearchMessages(ctx context.Context, groupID primitive.ObjectID, query string) ([]models.Message, error)
	CountUnread(ctx context.Context, groupID primitive.ObjectID, userID string) (int64, error)
}
