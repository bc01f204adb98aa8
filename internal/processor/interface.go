package processor

import (
	"clubsync/internal/livestore"
	"clubsync/internal/notifier"
)

// Store defines the database operations required by the processor.
type Store interface {
	CreateLiveMatch(m livestore.LiveMatch) error
	UpdateLivePlayerStats(matchID, playerID string, stats livestore.PartialStats) error
	UpdateLiveMatchScore(matchID string, team1Goals, team2Goals int) error
	CreateMatchEvent(e livestore.MatchEventRecord) error
	EndLiveMatch(matchID string) error
	GetLiveMatch(matchID string) (*livestore.LiveMatch, error)
}

// Notifier defines the notification operations required by the processor.
// This is now an alias for the main notifier interface for decoupling.
type Notifier interface {
	notifier.Notifier
}
