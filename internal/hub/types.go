package hub

import "encoding/json"

// Envelope is the single frame format carried over the relay websocket. The
// Type namespaces the two channel families (match:* and streaming:*/webrtc:*)
// and Room scopes delivery.
type Envelope struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Channel membership frames.
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
)

// Streaming session lifecycle frames handled by the relay itself.
const (
	MsgStreamingStart       = "streaming:start"
	MsgStreamingStarted     = "streaming:started"
	MsgStreamingStop        = "streaming:stop"
	MsgStreamingStopByMatch = "streaming:stop_by_match"
	MsgStreamingStopped     = "streaming:stopped"
	MsgViewerJoined         = "streaming:viewer_joined"
	MsgViewerLeft           = "streaming:viewer_left"
)

// MatchRoom returns the room key for a match channel.
func MatchRoom(matchID string) string { return "match:" + matchID }

// StreamRoom returns the room key for a streaming signaling channel.
func StreamRoom(sessionID string) string { return "stream:" + sessionID }

// StreamStartRequest asks the relay to allocate a stream session.
type StreamStartRequest struct {
	MatchID string `json:"match_id"`
}

// StreamStartedPayload carries the server-assigned session id back to the
// broadcaster.
type StreamStartedPayload struct {
	SessionID string `json:"session_id"`
	MatchID   string `json:"match_id"`
}

// ViewerPayload identifies a viewer in join/leave notifications.
type ViewerPayload struct {
	ViewerID string `json:"viewer_id"`
}

// StopPayload identifies why a stream was stopped.
type StopPayload struct {
	SessionID string `json:"session_id"`
	MatchID   string `json:"match_id,omitempty"`
}
