package signaling

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"

	"clubsync/internal/hub"
)

// Signaling channel frame types, sessionId-scoped.
const (
	MsgOffer     = "webrtc:offer"
	MsgAnswer    = "webrtc:answer"
	MsgCandidate = "webrtc:ice_candidate"
)

// LinkState is the lifecycle of one peer link. The terminal states are only
// ever reached through the transport's own state callback or explicit
// teardown, never inferred from message receipt.
type LinkState string

const (
	LinkNew            LinkState = "new"
	LinkOfferSent      LinkState = "offer_sent"
	LinkAnswerReceived LinkState = "answer_received"
	LinkConnected      LinkState = "connected"
	LinkDisconnected   LinkState = "disconnected"
	LinkFailed         LinkState = "failed"
	LinkClosed         LinkState = "closed"
)

var (
	// ErrNoActiveBroadcaster is reported to a viewer whose connection attempt
	// does not reach Connected within the bounded timeout. The viewer stays
	// in a not-watching state; there is no automatic retry.
	ErrNoActiveBroadcaster = errors.New("no active broadcaster for stream session")
	// ErrNoRemoteDescription guards against applying an ICE candidate before
	// the remote description exists.
	ErrNoRemoteDescription = errors.New("remote description not set")
	// ErrUnexpectedAnswer is returned when an answer arrives for a link that
	// has no outstanding offer.
	ErrUnexpectedAnswer = errors.New("answer received without a sent offer")
	// ErrLinkNotFound is returned when a signaling frame addresses a peer
	// link this coordinator does not hold.
	ErrLinkNotFound = errors.New("no peer link for connection id")
	// ErrNotBroadcasting is returned for viewer-facing operations issued
	// before a stream session exists.
	ErrNotBroadcasting = errors.New("no active stream session")
)

// StreamSession is one allocated stream, keyed by its server-assigned id.
type StreamSession struct {
	ID            string `json:"id"`
	MatchID       string `json:"match_id"`
	BroadcasterID string `json:"broadcaster_id"`
	IsActive      bool   `json:"is_active"`
}

// DescriptionPayload carries an SDP offer or answer.
type DescriptionPayload struct {
	SDP       string `json:"sdp"`
	SessionID string `json:"session_id"`
	MatchID   string `json:"match_id,omitempty"`
}

// CandidatePayload carries one ICE candidate.
type CandidatePayload struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	SessionID string                  `json:"session_id"`
	MatchID   string                  `json:"match_id,omitempty"`
}

// Channel is the signaling transport, satisfied by *hub.Conn.
type Channel interface {
	Join(room string) error
	Leave(room string) error
	Send(env hub.Envelope) error
	Subscribe(room string, h hub.Handler) *hub.Subscription
	Unsubscribe(sub *hub.Subscription)
}

// MediaSource provides the local capture tracks. The capture device is
// exclusively owned: Acquire releases any previously held capture before
// opening a new one, and Release must be safe to call repeatedly.
type MediaSource interface {
	Acquire(ctx context.Context) ([]webrtc.TrackLocal, error)
	Release()
}

// DefaultICEServers is the STUN-only fallback configuration. Without a TURN
// relay, NAT traversal can fail on symmetric NATs; this is a known
// limitation.
func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
}

// ICEServers builds the ICE server list from the configured STUN urls,
// falling back to the defaults when none are given.
func ICEServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		return DefaultICEServers()
	}
	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, url := range urls {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return servers
}
