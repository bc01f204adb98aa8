package hub

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub is the room-scoped relay carrying both the match event channels and
// the streaming signaling channels. It holds no match state of its own: every
// frame is fanned out to the other members of the room, or routed to exactly
// one member when addressed. The only frames the relay answers itself are the
// stream session lifecycle ones, because stream session ids are
// server-assigned.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]*client
	// sessions maps stream session id -> the session's broadcaster and match.
	sessions map[string]streamSession
	listener StreamListener

	upgrader websocket.Upgrader
}

type streamSession struct {
	broadcaster string
	matchID     string
}

// StreamListener receives stream session lifecycle events. The hub calls it
// outside its locks, on a fresh goroutine.
type StreamListener interface {
	StreamStarted(matchID, sessionID string)
	StreamStopped(matchID, sessionID string)
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Envelope
}

// New creates an empty relay hub.
func New() *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		rooms:    make(map[string]map[string]*client),
		sessions: make(map[string]streamSession),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetStreamListener registers the listener notified on stream session
// lifecycle. Call before the hub starts serving connections.
func (h *Hub) SetStreamListener(l StreamListener) {
	h.mu.Lock()
	h.listener = l
	h.mu.Unlock()
}

// Handler returns the websocket endpoint. Clients identify themselves with
// the client_id query parameter; one is assigned when absent.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", "error", err)
			return
		}
		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			clientID = uuid.NewString()
		}
		c := &client{id: clientID, conn: conn, send: make(chan Envelope, 64)}

		h.mu.Lock()
		h.clients[clientID] = c
		h.mu.Unlock()
		log.Info("relay client connected", "clientID", clientID)

		go h.writeLoop(c)
		h.readLoop(c)
	}
}

func (h *Hub) writeLoop(c *client) {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			log.Debug("relay write failed", "clientID", c.id, "error", err)
			return
		}
	}
}

func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			log.Debug("relay read closed", "clientID", c.id, "error", err)
			return
		}
		env.From = c.id
		h.route(c, env)
	}
}

func (h *Hub) route(c *client, env Envelope) {
	switch env.Type {
	case MsgJoin:
		h.join(c, env.Room)
	case MsgLeave:
		h.leave(c, env.Room)
	case MsgStreamingStart:
		h.startStream(c, env)
	case MsgStreamingStop, MsgStreamingStopByMatch:
		h.stopStream(c, env)
	default:
		h.relay(env)
	}
}

// relay fans the frame out to the room, excluding the sender, or routes it to
// the addressed member only.
func (h *Hub) relay(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.rooms[env.Room]
	if !ok {
		log.Warn("frame for unknown room dropped", "room", env.Room, "type", env.Type)
		return
	}
	if env.To != "" {
		if target, ok := members[env.To]; ok {
			h.deliver(target, env)
		} else {
			log.Warn("addressed frame for absent member dropped", "room", env.Room, "to", env.To, "type", env.Type)
		}
		return
	}
	for id, member := range members {
		if id == env.From {
			continue
		}
		h.deliver(member, env)
	}
}

func (h *Hub) deliver(c *client, env Envelope) {
	select {
	case c.send <- env:
	default:
		log.Warn("relay send buffer full, dropping client", "clientID", c.id)
		go h.drop(c)
	}
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]*client)
	}
	h.rooms[room][c.id] = c
	sess, isStream := h.sessions[streamSessionID(room)]
	h.mu.Unlock()
	log.Info("client joined room", "clientID", c.id, "room", room)

	// A viewer joining a stream room triggers the broadcaster's per-viewer
	// offer.
	if isStream && sess.broadcaster != c.id {
		payload, _ := json.Marshal(ViewerPayload{ViewerID: c.id})
		h.relay(Envelope{Type: MsgViewerJoined, Room: room, From: c.id, To: sess.broadcaster, Payload: payload})
	}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	sess, isStream := h.sessions[streamSessionID(room)]
	h.mu.Unlock()
	log.Info("client left room", "clientID", c.id, "room", room)

	if isStream && sess.broadcaster != c.id {
		payload, _ := json.Marshal(ViewerPayload{ViewerID: c.id})
		h.relay(Envelope{Type: MsgViewerLeft, Room: room, From: c.id, To: sess.broadcaster, Payload: payload})
	}
}

// startStream allocates a server-assigned stream session id, joins the
// broadcaster to the new room and answers with streaming:started.
func (h *Hub) startStream(c *client, env Envelope) {
	var req StreamStartRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		log.Warn("malformed streaming:start payload", "clientID", c.id, "error", err)
		return
	}
	sessionID := uuid.NewString()
	room := StreamRoom(sessionID)

	h.mu.Lock()
	h.sessions[sessionID] = streamSession{broadcaster: c.id, matchID: req.MatchID}
	h.rooms[room] = map[string]*client{c.id: c}
	listener := h.listener
	h.mu.Unlock()
	log.Info("stream session allocated", "sessionID", sessionID, "matchID", req.MatchID, "broadcaster", c.id)

	payload, _ := json.Marshal(StreamStartedPayload{SessionID: sessionID, MatchID: req.MatchID})
	h.deliver(c, Envelope{Type: MsgStreamingStarted, Room: room, To: c.id, Payload: payload})
	if listener != nil {
		go listener.StreamStarted(req.MatchID, sessionID)
	}
}

// stopStream tears a session down and tells every member. Repeated stops for
// the same session are no-ops.
func (h *Hub) stopStream(c *client, env Envelope) {
	var stop StopPayload
	if env.Payload != nil {
		if err := json.Unmarshal(env.Payload, &stop); err != nil {
			log.Warn("malformed streaming stop payload", "clientID", c.id, "error", err)
			return
		}
	}
	sessionID := stop.SessionID
	if sessionID == "" {
		sessionID = streamSessionID(env.Room)
	}

	h.mu.Lock()
	sess, known := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	listener := h.listener
	h.mu.Unlock()
	if !known {
		return
	}
	matchID := stop.MatchID
	if matchID == "" {
		matchID = sess.matchID
	}
	log.Info("stream session stopped", "sessionID", sessionID, "matchID", matchID, "by", c.id, "trigger", env.Type)

	payload, _ := json.Marshal(StopPayload{SessionID: sessionID, MatchID: matchID})
	h.relay(Envelope{Type: MsgStreamingStopped, Room: StreamRoom(sessionID), From: c.id, Payload: payload})
	if listener != nil {
		go listener.StreamStopped(matchID, sessionID)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
	h.mu.Unlock()
	c.conn.Close()
	log.Info("relay client disconnected", "clientID", c.id)
}

// streamSessionID extracts the session id from a stream room key, or returns
// "" for non-stream rooms.
func streamSessionID(room string) string {
	const prefix = "stream:"
	if len(room) > len(prefix) && room[:len(prefix)] == prefix {
		return room[len(prefix):]
	}
	return ""
}
