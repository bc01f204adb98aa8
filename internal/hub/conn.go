package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Handler consumes one inbound envelope.
type Handler func(Envelope)

// Subscription is the registration token returned by Subscribe. Unsubscribe
// takes the same token, so subscribe and unsubscribe are always paired on the
// exact same handler registration.
type Subscription struct {
	room    string
	id      int
	handler Handler
}

// Conn is the client side of the relay: one websocket, one subscription per
// room, dispatched to the registered handlers by the read loop.
type Conn struct {
	ClientID string

	ws      *websocket.Conn
	writeMu sync.Mutex

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]*Subscription
}

// Dial connects to the relay websocket endpoint.
func Dial(ctx context.Context, url, clientID string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url+"?client_id="+clientID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}
	return &Conn{
		ClientID: clientID,
		ws:       ws,
		subs:     make(map[string]map[int]*Subscription),
	}, nil
}

// Send writes one envelope. Writes are serialized, so a client's own frames
// leave in the order they were produced.
func (c *Conn) Send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

// Join announces membership of a room to the relay.
func (c *Conn) Join(room string) error {
	return c.Send(Envelope{Type: MsgJoin, Room: room, From: c.ClientID})
}

// Leave withdraws membership of a room.
func (c *Conn) Leave(room string) error {
	return c.Send(Envelope{Type: MsgLeave, Room: room, From: c.ClientID})
}

// Subscribe registers a handler for every envelope delivered to a room. The
// empty room subscribes to all frames, which is how a broadcaster catches the
// streaming:started reply for a room it does not know the id of yet.
func (c *Conn) Subscribe(room string, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	sub := &Subscription{room: room, id: c.nextID, handler: h}
	if _, ok := c.subs[room]; !ok {
		c.subs[room] = make(map[int]*Subscription)
	}
	c.subs[room][sub.id] = sub
	return sub
}

// Unsubscribe removes exactly the registration made by Subscribe.
func (c *Conn) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if handlers, ok := c.subs[sub.room]; ok {
		delete(handlers, sub.id)
		if len(handlers) == 0 {
			delete(c.subs, sub.room)
		}
	}
}

// Run reads frames until the context is cancelled or the connection drops,
// dispatching each to the handlers subscribed to its room.
func (c *Conn) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.ws.Close()
	}()
	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("relay connection closed: %w", err)
		}
		c.dispatch(env)
	}
}

func (c *Conn) dispatch(env Envelope) {
	c.mu.RLock()
	handlers := make([]Handler, 0, 2)
	for _, sub := range c.subs[env.Room] {
		handlers = append(handlers, sub.handler)
	}
	if env.Room != "" {
		for _, sub := range c.subs[""] {
			handlers = append(handlers, sub.handler)
		}
	}
	c.mu.RUnlock()
	if len(handlers) == 0 {
		log.Debug("frame for room without subscription", "room", env.Room, "type", env.Type)
		return
	}
	for _, h := range handlers {
		h(env)
	}
}

// Close tears the websocket down.
func (c *Conn) Close() error {
	return c.ws.Close()
}
