package hub

import (
	"sync"
)

// LocalPubSub is the in-process fan-out table used in self-contained
// mode. It maps channel keys to the outbound queues of subscribed
// sessions.
type LocalPubSub struct {
	mutex    sync.RWMutex
	channels map[string]map[int64]chan []byte
}

func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{
		channels: make(map[string]map[int64]chan []byte),
	}
}

// Subscribe binds a session to a channel. Subscribing twice is a no-op.
func (ps *LocalPubSub) Subscribe(channel string, sessionID int64, send chan []byte) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if ps.channels[channel] == nil {
		ps.channels[channel] = make(map[int64]chan []byte)
	}
	ps.channels[channel][sessionID] = send
}

func (ps *LocalPubSub) Unsubscribe(channel string, sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.unsubscribeLocked(channel, sessionID)
}

func (ps *LocalPubSub) unsubscribeLocked(channel string, sessionID int64) {
	subscribers := ps.channels[channel]
	delete(subscribers, sessionID)

	// drop channels nobody is subscribed to
	if len(subscribers) == 0 {
		delete(ps.channels, channel)
	}
}

// UnsubscribeAll removes one session from every channel. Other
// sessions' bindings in the same channels are untouched.
func (ps *LocalPubSub) UnsubscribeAll(sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for channel := range ps.channels {
		ps.unsubscribeLocked(channel, sessionID)
	}
}

func (ps *LocalPubSub) Subscribed(channel string, sessionID int64) bool {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	_, ok := ps.channels[channel][sessionID]
	return ok
}

// Publish queues the message on every subscriber of the channel. A
// subscriber whose queue is full misses the message, it reconciles via
// a full history fetch on its next join.
func (ps *LocalPubSub) Publish(channel string, message []byte) int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	delivered := 0
	for _, send := range ps.channels[channel] {
		select {
		case send <- message:
			delivered++
		default:
		}
	}
	return delivered
}
