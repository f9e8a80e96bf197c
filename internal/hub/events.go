package hub

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client to server events.
const (
	EventJoin         = "join"
	EventJoinGroup    = "joinGroup"
	EventGroupMessage = "groupMessage"
)

// Server to client events. EventReadStatusUpdated also arrives from
// clients as a pure relay, persistence of read receipts happens over
// REST.
const (
	EventMessageReceived   = "message_received"
	EventReadStatusUpdated = "readStatusUpdated"
	EventMemberBanned      = "member_banned"
	EventMemberMuted       = "member_muted"
	EventRemovedFromGroup  = "removed_from_group"
	EventError             = "error"
)

// UserChannel keys a user's personal channel, delivery reaches every
// connection the user currently has open.
func UserChannel(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func GroupChannel(groupID primitive.ObjectID) string {
	return fmt.Sprintf("group:%s", groupID.Hex())
}

// Frames are text messages of the form "eventName\n<json payload>".
func EncodeFrame(event string, payload any) ([]byte, error) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(event) + 1 + len(jsonBytes))
	buf.WriteString(event)
	buf.WriteByte('\n')
	buf.Write(jsonBytes)
	return buf.Bytes(), nil
}

func DecodeFrame(data []byte) (string, json.RawMessage, error) {
	event, payload, found := bytes.Cut(data, []byte{'\n'})
	if !found || len(event) == 0 {
		return "", nil, fmt.Errorf("malformed frame")
	}
	return string(event), json.RawMessage(payload), nil
}
