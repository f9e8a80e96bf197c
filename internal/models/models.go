package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	GroupTypeGroup   = "group"
	GroupTypePrivate = "private"
)

// User is keyed by the identifier issued by the external identity
// provider, not by a generated ObjectID.
type User struct {
	ID      string `bson:"_id" json:"_id"`
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	IconURL string `bson:"iconUrl,omitempty" json:"iconUrl,omitempty"`
	Bio     string `bson:"bio,omitempty" json:"bio,omitempty"`
}

type Group struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Members   []string           `bson:"members" json:"members"`
	CreatedBy string             `bson:"createdBy" json:"createdBy"`
	Type      string             `bson:"type" json:"type"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type GroupMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	GroupID  primitive.ObjectID `bson:"groupId" json:"groupId"`
	UserID   string             `bson:"userId" json:"userId"`
	IsAdmin  bool               `bson:"isAdmin" json:"isAdmin"`
	IsBanned bool               `bson:"isBanned" json:"isBanned"`
	IsMuted  bool               `bson:"isMuted" json:"isMuted"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

// Message always holds the raw sender and group identifiers. At least
// one of Text and FileURL is set.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Group     primitive.ObjectID `bson:"group" json:"group"`
	Sender    string             `bson:"sender" json:"sender"`
	Text      string             `bson:"text,omitempty" json:"text,omitempty"`
	FileURL   string             `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	FileType  string             `bson:"fileType,omitempty" json:"fileType,omitempty"`
	FileName  string             `bson:"fileName,omitempty" json:"fileName,omitempty"`
	GifQuery  string             `bson:"gifQuery,omitempty" json:"gifQuery,omitempty"`
	ReadBy    []string           `bson:"readBy" json:"readBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Populated variants exist only at the serialization edge, domain code
// keeps raw identifiers.

type MemberWithUser struct {
	GroupMember
	User User `json:"userId"`
}

type MembershipWithGroup struct {
	GroupMember
	Group Group `json:"groupId"`
}

type GroupWithUnread struct {
	Group
	UnreadCount int64 `json:"unreadCount"`
}

// UserSummary is the shape returned by the user search endpoint.
type UserSummary struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	UID  string `json:"uid"`
}

type ConfigFile struct {
	Address           string
	Port              string
	BehindNginx       bool
	TlsCert           string
	TlsKey            string
	Cors              bool
	PrintHttpRequests bool
	LogToFile         bool
	LogLevel          string
	JwtSecret         string
	SnowflakeWorkerID int64
	SelfContained     bool
	MongoUri          string
	MongoDatabase     string
	RedisAddress      string
	RedisPassword     string
	UploadDir         string
	PublicBaseUrl     string
	GifApiKey         string
	GifApiUrl         string
}
