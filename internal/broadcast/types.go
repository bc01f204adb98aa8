package broadcast

import (
	"clubsync/internal/hub"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
	"sync"
)

// MatchMessage is the payload of every match channel frame. The minute is
// derived from the acting client's own timer at call time and is never
// recomputed by receivers.
type MatchMessage struct {
	MatchID    string                `json:"match_id"`
	TeamID     string                `json:"team_id,omitempty"`
	TeamName   string                `json:"team_name,omitempty"`
	PlayerID   string                `json:"player_id,omitempty"`
	PlayerName string                `json:"player_name,omitempty"`
	Direction  match.ToggleDirection `json:"direction,omitempty"`
	Minute     int                   `json:"minute"`
}

// Channel is the transport the client publishes on and receives from. It is
// satisfied by *hub.Conn; tests use an in-process fake.
type Channel interface {
	Join(room string) error
	Leave(room string) error
	Send(env hub.Envelope) error
	Subscribe(room string, h hub.Handler) *hub.Subscription
	Unsubscribe(sub *hub.Subscription)
}

// Client owns one match channel membership: it turns the session's outbound
// announcements into frames and replays inbound frames into the session.
type Client struct {
	session *match.Session
	channel Channel
	metrics metrics.Metrics

	mu  sync.Mutex
	sub *hub.Subscription
}
