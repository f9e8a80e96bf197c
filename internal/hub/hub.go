package hub

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"groupchat-backend/internal/models"
	"groupchat-backend/internal/snowflake"
)

// Store is the slice of the persistence gateway the hub needs: the
// membership gate for joins and sends, and message persistence for
// socket-originated sends.
type Store interface {
	FindMember(ctx context.Context, groupID primitive.ObjectID, userID string) (models.GroupMember, error)
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
}

// Hub owns every websocket connection of the process and routes events
// to personal and group channels. It is constructed once in main and
// passed by reference to whoever needs to emit.
type Hub struct {
	sugar         *zap.SugaredLogger
	store         Store
	redisClient   *redis.Client
	selfContained bool
	pubsub        *LocalPubSub
	sessionIDs    *snowflake.Generator

	clients      map[int64]*Client
	clientsMutex sync.Mutex

	// emitMutex serializes fan-out so that events published after one
	// another reach every subscriber in the same order
	emitMutex sync.Mutex

	redisCtx context.Context
}

func NewHub(sugar *zap.SugaredLogger, store Store, redisClient *redis.Client, selfContained bool, sessionIDs *snowflake.Generator) *Hub {
	return &Hub{
		sugar:         sugar,
		store:         store,
		redisClient:   redisClient,
		selfContained: selfContained,
		pubsub:        NewLocalPubSub(),
		sessionIDs:    sessionIDs,
		clients:       make(map[int64]*Client),
		redisCtx:      context.Background(),
	}
}

func (h *Hub) setClient(sessionID int64, client *Client) {
	h.sugar.Debugf("Adding session ID [%d] to clients", sessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.clients[sessionID] = client
}

func (h *Hub) deleteClient(sessionID int64) {
	h.sugar.Debugf("Removing session ID [%d] from clients", sessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	delete(h.clients, sessionID)
}

func (h *Hub) GetClient(sessionID int64) (*Client, bool) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	client, exists := h.clients[sessionID]
	return client, exists
}

// Emit delivers one event to every connection bound to the channel.
// Callers emit only after the backing write has been persisted, so
// channel order follows persistence order.
func (h *Hub) Emit(event string, channel string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	h.emitMutex.Lock()
	defer h.emitMutex.Unlock()

	h.sugar.Debugf("Emitting %s to channel %s", event, channel)

	if h.selfContained {
		h.pubsub.Publish(channel, frame)
		return nil
	}

	return h.redisClient.Publish(h.redisCtx, channel, frame).Err()
}

// ServeWS upgrades the request and runs the connection until the
// client goes away. Disconnection clears every channel binding for the
// session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.sugar.Error(err)
		return
	}
	defer conn.Close()

	sessionID, err := h.sessionIDs.Generate()
	if err != nil {
		h.sugar.Error(err)
		return
	}

	clientCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		hub:       h,
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		ctx:       clientCtx,
		cancel:    cancel,
	}

	if !h.selfContained {
		client.redisSub = h.redisClient.Subscribe(clientCtx)
		defer client.redisSub.Close()
		go client.redisPump()
	}

	h.setClient(sessionID, client)
	defer h.deleteClient(sessionID)
	defer h.pubsub.UnsubscribeAll(sessionID)

	go client.writePump()

	client.readPump()
}
