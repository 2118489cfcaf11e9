package chatnode

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// closeSentinel is the single line a subscriber stream receives when its
// chatroom closes. Clients match on this exact line to know no further
// messages will arrive (spec §6's client stream protocol).
const closeSentinel = "\\c"

// Subscriber is one client's live connection to a chatroom: its username
// and the stream publish() writes formatted lines to.
type Subscriber struct {
	Username string
	stream   io.Writer
}

// Chatroom holds the live, in-memory state of one chatroom hosted on this
// node: its name and its subscriber set. A chatroom exists on exactly one
// chat node at a time (spec §3) — this type has no notion of any other
// node's copy.
//
// Thread Safety: all methods are safe for concurrent use; mu guards the
// subscriber map so subscribe/unsubscribe/publish never race each other.
type Chatroom struct {
	Name string

	log *zap.Logger

	mu          sync.Mutex
	subscribers map[string]*Subscriber
}

// NewChatroom creates an empty, freshly placed chatroom.
func NewChatroom(name string, log *zap.Logger) *Chatroom {
	return &Chatroom{
		Name:        name,
		log:         log,
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe adds username's stream to the room. A second subscribe for the
// same username replaces the earlier stream without closing it — the
// caller (streams.go) is responsible for only ever calling this once per
// live connection.
func (c *Chatroom) Subscribe(username string, stream io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[username] = &Subscriber{Username: username, stream: stream}
}

// Unsubscribe removes username from the room. Closing the underlying
// stream is the caller's responsibility, since the stream may be a
// net.Conn the caller still needs to close cleanly on its own code path.
func (c *Chatroom) Unsubscribe(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, username)
}

// SubscriberCount reports how many clients currently hold a live stream
// into this room — the "user_count" the coordinator's placement decision
// aggregates across chatrooms.
func (c *Chatroom) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// Publish writes line to every subscriber's stream. A per-subscriber
// write error is logged but does not remove that subscriber — a dead
// stream is cleaned up by its own leaveChatroom call or by closeRoom,
// never eagerly by publish (spec §7's open question on this point is
// resolved by doing nothing more than logging here).
func (c *Chatroom) Publish(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for username, sub := range c.subscribers {
		if _, err := fmt.Fprintf(sub.stream, "%s\n", line); err != nil {
			c.log.Warn("failed to publish to subscriber", zap.String("chatroom", c.Name),
				zap.String("username", username), zap.Error(err))
		}
	}
}

// CloseRoom writes the room-closed sentinel to every subscriber and
// clears the subscriber set. Closing each stream is left to the caller
// (the registry, which owns the net.Conn lifecycle); CloseRoom only
// clears this room's own bookkeeping.
func (c *Chatroom) CloseRoom() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var closed []string
	for username, sub := range c.subscribers {
		fmt.Fprintf(sub.stream, "%s\n", closeSentinel)
		closed = append(closed, username)
	}
	c.subscribers = make(map[string]*Subscriber)
	return closed
}
