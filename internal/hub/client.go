package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/models"
)

const (
	sendQueueSize = 256
	eventTimeout  = 10 * time.Second
	writeWait     = 10 * time.Second
	maxFrameSize  = 64 * 1024
)

// Client is one websocket connection. The user binding is established
// by the join event, everything before that can only be refused.
type Client struct {
	hub       *Hub
	sessionID int64
	conn      *websocket.Conn
	send      chan []byte
	redisSub  *redis.PubSub
	ctx       context.Context
	cancel    context.CancelFunc

	mutex  sync.Mutex
	userID string
}

func (c *Client) UserID() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.userID
}

func (c *Client) setUserID(userID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.userID = userID
}

// queueFrame hands a frame to the write pump. A full queue drops the
// frame, the client recovers by refetching history on its next join.
func (c *Client) queueFrame(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.hub.sugar.Warnf("Dropping frame for slow session ID [%d]", c.sessionID)
	}
}

func (c *Client) queueEvent(event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		c.hub.sugar.Error(err)
		return
	}
	c.queueFrame(frame)
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.sugar.Debug(err)
				c.cancel()
				return
			}
		}
	}
}

// redisPump forwards backplane messages to the write pump when the hub
// runs against redis instead of the in-process table.
func (c *Client) redisPump() {
	ch := c.redisSub.Channel()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.queueFrame([]byte(msg.Payload))
		}
	}
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.hub.sugar.Debug(err)
			return
		}

		event, payload, err := DecodeFrame(data)
		if err != nil {
			c.queueEvent(EventError, errorPayload{Message: "malformed frame"})
			continue
		}

		// a failing event must never tear down the connection
		if err := c.handleEvent(event, payload); err != nil {
			c.hub.sugar.Errorf("Session ID [%d] event %s: %v", c.sessionID, event, err)
		}
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinGroupPayload struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type inboundMessage struct {
	GroupID string `json:"groupId"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	TempID  string `json:"tempId,omitempty"`
}

// MessageReceivedPayload is the fan-out event body. TempID echoes the
// sender's correlation id so its optimistic copy can be promoted to
// the canonical message.
type MessageReceivedPayload struct {
	GroupID string         `json:"groupId"`
	Message models.Message `json:"message"`
	TempID  string         `json:"tempId,omitempty"`
}

func (c *Client) handleEvent(event string, payload json.RawMessage) error {
	switch event {
	case EventJoin:
		return c.handleJoin(payload)
	case EventJoinGroup:
		return c.handleJoinGroup(payload)
	case EventGroupMessage:
		return c.handleGroupMessage(payload)
	case EventReadStatusUpdated:
		return c.handleReadRelay(payload)
	default:
		c.queueEvent(EventError, errorPayload{Message: "unknown event"})
		return nil
	}
}

// handleJoin binds the connection to the user's personal channel.
// Joining twice is a no-op.
func (c *Client) handleJoin(payload json.RawMessage) error {
	var userID string
	if err := json.Unmarshal(payload, &userID); err != nil || userID == "" {
		c.queueEvent(EventError, errorPayload{Message: "join requires a user id"})
		return nil
	}

	c.setUserID(userID)
	c.subscribe(UserChannel(userID))
	c.hub.sugar.Debugf("User [%s] joined personal channel as session ID [%d]", userID, c.sessionID)
	return nil
}

// handleJoinGroup binds the connection to a group channel, but only
// for non-banned members. A refused join is reported to the client
// rather than silently ignored.
func (c *Client) handleJoinGroup(payload json.RawMessage) error {
	var req joinGroupPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.queueEvent(EventError, errorPayload{Message: "malformed joinGroup payload"})
		return nil
	}

	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		c.queueEvent(EventError, errorPayload{Message: "invalid group id"})
		return nil
	}

	if req.UserID != "" {
		c.setUserID(req.UserID)
	}

	ctx, cancel := context.WithTimeout(c.ctx, eventTimeout)
	defer cancel()

	member, err := c.hub.store.FindMember(ctx, groupID, req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		c.queueEvent(EventError, errorPayload{Message: "not a member of this group"})
		return nil
	}
	if err != nil {
		c.queueEvent(EventError, errorPayload{Message: "could not verify membership"})
		return err
	}
	if member.IsBanned {
		c.queueEvent(EventError, errorPayload{Message: "banned from this group"})
		return nil
	}

	c.subscribe(GroupChannel(groupID))
	c.hub.sugar.Debugf("User [%s] joined group channel [%s]", req.UserID, req.GroupID)
	return nil
}

// handleGroupMessage persists a socket-originated message and fans it
// out. Moderation flags are checked before anything is written, and a
// persistence failure leaves the sender without a confirmation, its
// optimistic entry times out client-side.
func (c *Client) handleGroupMessage(payload json.RawMessage) error {
	var req inboundMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		c.queueEvent(EventError, errorPayload{Message: "malformed message payload"})
		return nil
	}

	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		c.queueEvent(EventError, errorPayload{Message: "invalid group id"})
		return nil
	}
	if req.Sender == "" || req.Text == "" {
		c.queueEvent(EventError, errorPayload{Message: "sender and text are required"})
		return nil
	}

	ctx, cancel := context.WithTimeout(c.ctx, eventTimeout)
	defer cancel()

	member, err := c.hub.store.FindMember(ctx, groupID, req.Sender)
	if errors.Is(err, database.ErrNotFound) {
		c.queueEvent(EventError, errorPayload{Message: "not a member of this group"})
		return nil
	}
	if err != nil {
		return err
	}
	if member.IsBanned || member.IsMuted {
		c.queueEvent(EventError, errorPayload{Message: "not allowed to send to this group"})
		return nil
	}

	msg, err := c.hub.store.CreateMessage(ctx, models.Message{
		Group:  groupID,
		Sender: req.Sender,
		Text:   req.Text,
		ReadBy: []string{req.Sender},
	})
	if err != nil {
		return err
	}

	return c.hub.Emit(EventMessageReceived, GroupChannel(groupID), MessageReceivedPayload{
		GroupID: req.GroupID,
		Message: msg,
		TempID:  req.TempID,
	})
}

// handleReadRelay rebroadcasts a read-status update to the message's
// group. Receipt persistence happens over REST, this path is a pure
// relay kept for older clients.
func (c *Client) handleReadRelay(payload json.RawMessage) error {
	var msg struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.queueEvent(EventError, errorPayload{Message: "malformed message payload"})
		return nil
	}

	groupID, err := primitive.ObjectIDFromHex(msg.Group)
	if err != nil {
		c.queueEvent(EventError, errorPayload{Message: "invalid group id"})
		return nil
	}

	return c.hub.Emit(EventReadStatusUpdated, GroupChannel(groupID), payload)
}

func (c *Client) subscribe(channel string) {
	if c.hub.selfContained {
		c.hub.pubsub.Subscribe(channel, c.sessionID, c.send)
		return
	}

	if err := c.redisSub.Subscribe(c.ctx, channel); err != nil {
		c.hub.sugar.Error(err)
	}
}
