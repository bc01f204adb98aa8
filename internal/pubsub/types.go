package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventMatchArchived EventType = "match-archived"
	EventStreamStarted EventType = "stream-started"
	EventStreamStopped EventType = "stream-stopped"
)

// MatchArchivedPayload is published once a finished match has been
// persisted to the live store.
type MatchArchivedPayload struct {
	MatchID    string `msgpack:"match_id"`
	Team1ID    string `msgpack:"team1_id"`
	Team2ID    string `msgpack:"team2_id"`
	Team1Goals int    `msgpack:"team1_goals"`
	Team2Goals int    `msgpack:"team2_goals"`
	Events     int    `msgpack:"events"`
}

// StreamLifecyclePayload is published when a broadcast session starts
// or stops.
type StreamLifecyclePayload struct {
	SessionID string `msgpack:"session_id"`
	MatchID   string `msgpack:"match_id"`
}
