package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/models"
)

func newTestClient(t *testing.T, store Store) (*Hub, *Client) {
	t.Helper()

	h := NewHub(zap.NewNop().Sugar(), store, nil, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	client := &Client{
		hub:       h,
		sessionID: 1,
		send:      make(chan []byte, sendQueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	h.setClient(client.sessionID, client)

	return h, client
}

func requireQueuedEvent(t *testing.T, client *Client, want string) json.RawMessage {
	t.Helper()

	select {
	case frame := <-client.send:
		event, payload, err := DecodeFrame(frame)
		require.NoError(t, err)
		require.Equal(t, want, event)
		return payload
	default:
		t.Fatalf("expected a queued %s event", want)
		return nil
	}
}

func TestSessionRegistry(t *testing.T) {
	h, client := newTestClient(t, nil)

	got, ok := h.GetClient(client.sessionID)
	require.True(t, ok)
	assert.Same(t, client, got)

	h.deleteClient(client.sessionID)
	_, ok = h.GetClient(client.sessionID)
	assert.False(t, ok)
}

func TestHandleJoinBindsPersonalChannel(t *testing.T) {
	h, client := newTestClient(t, nil)

	payload, err := json.Marshal("u1")
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventJoin, payload))

	assert.Equal(t, "u1", client.UserID())
	assert.True(t, h.pubsub.Subscribed(UserChannel("u1"), client.sessionID))
}

func TestHandleJoinGroupRefusesNonMember(t *testing.T) {
	groupID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	repo.On("FindMember", mock.Anything, groupID, "outsider").
		Return(models.GroupMember{}, database.ErrNotFound)

	h, client := newTestClient(t, repo)

	payload, err := json.Marshal(joinGroupPayload{GroupID: groupID.Hex(), UserID: "outsider"})
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventJoinGroup, payload))

	requireQueuedEvent(t, client, EventError)
	assert.False(t, h.pubsub.Subscribed(GroupChannel(groupID), client.sessionID))
}

func TestHandleJoinGroupRefusesBannedMember(t *testing.T) {
	groupID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	repo.On("FindMember", mock.Anything, groupID, "u1").
		Return(models.GroupMember{GroupID: groupID, UserID: "u1", IsBanned: true}, nil)

	h, client := newTestClient(t, repo)

	payload, err := json.Marshal(joinGroupPayload{GroupID: groupID.Hex(), UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventJoinGroup, payload))

	requireQueuedEvent(t, client, EventError)
	assert.False(t, h.pubsub.Subscribed(GroupChannel(groupID), client.sessionID))
}

func TestHandleJoinGroupSubscribesMember(t *testing.T) {
	groupID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	repo.On("FindMember", mock.Anything, groupID, "u1").
		Return(models.GroupMember{GroupID: groupID, UserID: "u1"}, nil)

	h, client := newTestClient(t, repo)

	payload, err := json.Marshal(joinGroupPayload{GroupID: groupID.Hex(), UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventJoinGroup, payload))

	assert.Len(t, client.send, 0)
	assert.True(t, h.pubsub.Subscribed(GroupChannel(groupID), client.sessionID))
	assert.Equal(t, "u1", client.UserID())
}

func TestHandleGroupMessagePersistsAndFansOut(t *testing.T) {
	groupID := primitive.NewObjectID()
	stored := models.Message{
		ID:     primitive.NewObjectID(),
		Group:  groupID,
		Sender: "u1",
		Text:   "hello",
		ReadBy: []string{"u1"},
	}

	repo := new(database.MockRepository)
	repo.On("FindMember", mock.Anything, groupID, "u1").
		Return(models.GroupMember{GroupID: groupID, UserID: "u1"}, nil)
	repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Group == groupID && msg.Sender == "u1" && msg.Text == "hello" &&
			len(msg.ReadBy) == 1 && msg.ReadBy[0] == "u1"
	})).Return(stored, nil)

	h, client := newTestClient(t, repo)
	h.pubsub.Subscribe(GroupChannel(groupID), client.sessionID, client.send)

	payload, err := json.Marshal(inboundMessage{GroupID: groupID.Hex(), Sender: "u1", Text: "hello", TempID: "tmp-1"})
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventGroupMessage, payload))

	raw := requireQueuedEvent(t, client, EventMessageReceived)

	var received MessageReceivedPayload
	require.NoError(t, json.Unmarshal(raw, &received))
	assert.Equal(t, groupID.Hex(), received.GroupID)
	assert.Equal(t, stored.ID, received.Message.ID)
	assert.Equal(t, "tmp-1", received.TempID)
}

func TestGroupMessageFanOutFollowsPersistenceOrder(t *testing.T) {
	groupID := primitive.NewObjectID()
	member := models.GroupMember{GroupID: groupID, UserID: "u1"}
	first := models.Message{ID: primitive.NewObjectID(), Group: groupID, Sender: "u1", Text: "first", ReadBy: []string{"u1"}}
	second := models.Message{ID: primitive.NewObjectID(), Group: groupID, Sender: "u1", Text: "second", ReadBy: []string{"u1"}}

	repo := new(database.MockRepository)
	repo.On("FindMember", mock.Anything, groupID, "u1").Return(member, nil)
	repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Text == "first"
	})).Return(first, nil)
	repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Text == "second"
	})).Return(second, nil)

	h, sender := newTestClient(t, repo)
	watcher := make(chan []byte, sendQueueSize)
	h.pubsub.Subscribe(GroupChannel(groupID), sender.sessionID, sender.send)
	h.pubsub.Subscribe(GroupChannel(groupID), 2, watcher)

	for _, text := range []string{"first", "second"} {
		payload, err := json.Marshal(inboundMessage{GroupID: groupID.Hex(), Sender: "u1", Text: text})
		require.NoError(t, err)
		require.NoError(t, sender.handleEvent(EventGroupMessage, payload))
	}

	// every subscriber drains the two messages in persistence order
	for _, queue := range []chan []byte{sender.send, watcher} {
		for _, want := range []models.Message{first, second} {
			event, raw, err := DecodeFrame(<-queue)
			require.NoError(t, err)
			require.Equal(t, EventMessageReceived, event)

			var received MessageReceivedPayload
			require.NoError(t, json.Unmarshal(raw, &received))
			assert.Equal(t, want.ID, received.Message.ID)
		}
	}
}

func TestHandleGroupMessageRefusesMutedMember(t *testing.T) {
	groupID := primitive.NewObjectID()

	repo := new(database.MockRepository)
	repo.On("FindMember", mock.Anything, groupID, "u1").
		Return(models.GroupMember{GroupID: groupID, UserID: "u1", IsMuted: true}, nil)

	_, client := newTestClient(t, repo)

	payload, err := json.Marshal(inboundMessage{GroupID: groupID.Hex(), Sender: "u1", Text: "hello"})
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventGroupMessage, payload))

	requireQueuedEvent(t, client, EventError)
	repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestHandleReadRelayRebroadcasts(t *testing.T) {
	groupID := primitive.NewObjectID()

	h, client := newTestClient(t, nil)
	h.pubsub.Subscribe(GroupChannel(groupID), client.sessionID, client.send)

	payload, err := json.Marshal(map[string]any{"group": groupID.Hex(), "readBy": []string{"u2"}})
	require.NoError(t, err)
	require.NoError(t, client.handleEvent(EventReadStatusUpdated, payload))

	raw := requireQueuedEvent(t, client, EventReadStatusUpdated)
	assert.JSONEq(t, string(payload), string(raw))
}

func TestHandleUnknownEvent(t *testing.T) {
	_, client := newTestClient(t, nil)

	require.NoError(t, client.handleEvent("bogus", json.RawMessage(`{}`)))
	requireQueuedEvent(t, client, EventError)
}
