package database

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"groupchat-backend/internal/models"
)

const connectTimeout = 10 * time.Second

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	store := &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}

	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("groupmembers").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "groupId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "group", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection("groups").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}},
	})
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	_, err := s.db.Collection("users").InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return models.User{}, ErrDuplicate
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, params UpdateUserParams) (models.User, error) {
	set := bson.M{}
	if params.Name != nil {
		set["name"] = *params.Name
	}
	if params.IconURL != nil {
		set["iconUrl"] = *params.IconURL
	}
	if params.Bio != nil {
		set["bio"] = *params.Bio
	}

	var user models.User
	err := s.db.Collection("users").FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *MongoStore) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	filter := bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}

	cursor, err := s.db.Collection("users").Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) CreateGroup(ctx context.Context, group models.Group) (models.Group, error) {
	if group.ID.IsZero() {
		group.ID = primitive.NewObjectID()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if group.Members == nil {
		group.Members = []string{}
	}

	_, err := s.db.Collection("groups").InsertOne(ctx, group)
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (s *MongoStore) GetGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var group models.Group
	err := s.db.Collection("groups").FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	return group, err
}

// FindPrivateGroup looks up the private group holding exactly the given
// member pair, regardless of order.
func (s *MongoStore) FindPrivateGroup(ctx context.Context, userA, userB string) (models.Group, error) {
	filter := bson.M{
		"type":    models.GroupTypePrivate,
		"members": bson.M{"$all": []string{userA, userB}, "$size": 2},
	}

	var group models.Group
	err := s.db.Collection("groups").FindOne(ctx, filter).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	return group, err
}

func (s *MongoStore) GroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"createdBy": userID},
		bson.M{"members": userID},
	}}

	cursor, err := s.db.Collection("groups").Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	groups := []models.Group{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *MongoStore) UpdateGroupMembers(ctx context.Context, id primitive.ObjectID, members []string) (models.Group, error) {
	var group models.Group
	err := s.db.Collection("groups").FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"members": members}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	return group, err
}

// DeleteGroup removes the group along with its messages and membership
// records. Each delete is an independent single-collection operation.
func (s *MongoStore) DeleteGroup(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.db.Collection("messages").DeleteMany(ctx, bson.M{"group": id}); err != nil {
		return err
	}
	if _, err := s.db.Collection("groupmembers").DeleteMany(ctx, bson.M{"groupId": id}); err != nil {
		return err
	}

	res, err := s.db.Collection("groups").DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateMember(ctx context.Context, member models.GroupMember) (models.GroupMember, error) {
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := s.db.Collection("groupmembers").InsertOne(ctx, member)
	if mongo.IsDuplicateKeyError(err) {
		return models.GroupMember{}, ErrDuplicate
	}
	if err != nil {
		return models.GroupMember{}, err
	}
	return member, nil
}

func (s *MongoStore) GetMemberByID(ctx context.Context, id primitive.ObjectID) (models.GroupMember, error) {
	var member models.GroupMember
	err := s.db.Collection("groupmembers").FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupMember{}, ErrNotFound
	}
	return member, err
}

func (s *MongoStore) FindMember(ctx context.Context, groupID primitive.ObjectID, userID string) (models.GroupMember, error) {
	var member models.GroupMember
	err := s.db.Collection("groupmembers").FindOne(ctx, bson.M{"groupId": groupID, "userId": userID}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupMember{}, ErrNotFound
	}
	return member, err
}

func (s *MongoStore) MembersByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.MemberWithUser, error) {
	cursor, err := s.db.Collection("groupmembers").Find(ctx, bson.M{"groupId": groupID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []models.GroupMember
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}

	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	populated := make([]models.MemberWithUser, 0, len(members))
	for _, m := range members {
		populated = append(populated, models.MemberWithUser{
			GroupMember: m,
			User:        users[m.UserID],
		})
	}
	return populated, nil
}

func (s *MongoStore) MembershipsByUser(ctx context.Context, userID string) ([]models.MembershipWithGroup, error) {
	cursor, err := s.db.Collection("groupmembers").Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []models.GroupMember
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}

	groupIDs := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		groupIDs = append(groupIDs, m.GroupID)
	}

	groupCursor, err := s.db.Collection("groups").Find(ctx, bson.M{"_id": bson.M{"$in": groupIDs}})
	if err != nil {
		return nil, err
	}
	defer groupCursor.Close(ctx)

	var groups []models.Group
	if err := groupCursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	groupsByID := make(map[primitive.ObjectID]models.Group, len(groups))
	for _, g := range groups {
		groupsByID[g.ID] = g
	}

	populated := make([]models.MembershipWithGroup, 0, len(members))
	for _, m := range members {
		populated = append(populated, models.MembershipWithGroup{
			GroupMember: m,
			Group:       groupsByID[m.GroupID],
		})
	}
	return populated, nil
}

func (s *MongoStore) usersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	cursor, err := s.db.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (s *MongoStore) UpdateMemberFlags(ctx context.Context, id primitive.ObjectID, params UpdateMemberParams) (models.GroupMember, error) {
	set := bson.M{}
	if params.IsAdmin != nil {
		set["isAdmin"] = *params.IsAdmin
	}
	if params.IsBanned != nil {
		set["isBanned"] = *params.IsBanned
	}
	if params.IsMuted != nil {
		set["isMuted"] = *params.IsMuted
	}

	var member models.GroupMember
	err := s.db.Collection("groupmembers").FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupMember{}, ErrNotFound
	}
	return member, err
}

func (s *MongoStore) DeleteMember(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection("groupmembers").DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}

	_, err := s.db.Collection("messages").InsertOne(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *MongoStore) GetMessage(ctx context.Context, id primitive.ObjectID) (models.Message, error) {
	var msg models.Message
	err := s.db.Collection("messages").FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, ErrNotFound
	}
	return msg, err
}

func (s *MongoStore) MessagesByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Message, error) {
	cursor, err := s.db.Collection("messages").Find(
		ctx,
		bson.M{"group": groupID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// AddReadReceipt appends userID to the message's readBy set. $addToSet
// makes repeated calls for the same pair a no-op.
func (s *MongoStore) AddReadReceipt(ctx context.Context, id primitive.ObjectID, userID string) (models.Message, error) {
	var msg models.Message
	err := s.db.Collection("messages").FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"readBy": userID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, ErrNotFound
	}
	return msg, err
}

func (s *MongoStore) SearchMessages(ctx context.Context, groupID primitive.ObjectID, query string) ([]models.Message, error) {
	filter := bson.M{
		"group": groupID,
		"text":  primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	}

	cursor, err := s.db.Collection("messages").Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(50),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CountUnread counts messages in the group whose readBy set does not
// contain userID. The readBy-based rule is authoritative, sender
// identity plays no part.
func (s *MongoStore) CountUnread(ctx context.Context, groupID primitive.ObjectID, userID string) (int64, error) {
	return s.db.Collection("messages").CountDocuments(ctx, bson.M{
		"group":  groupID,
		"readBy": bson.M{"$ne": userID},
	})
}
