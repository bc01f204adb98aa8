package livestore

import (
	"database/sql"
	"sync"
)

// store handles all database operations for live match persistence.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// LiveMatch is the durable record of one match.
type LiveMatch struct {
	ID         string `json:"id"`
	Team1ID    string `json:"team1_id"`
	Team2ID    string `json:"team2_id"`
	Team1Name  string `json:"team1_name"`
	Team2Name  string `json:"team2_name"`
	Team1Goals int    `json:"team1_goals"`
	Team2Goals int    `json:"team2_goals"`
	Status     string `json:"status"`
}

// PartialStats is the per-player payload of the end-of-match write path.
type PartialStats struct {
	IsPlaying       bool `json:"is_playing"`
	TimePlayed      int  `json:"time_played"`
	Goals           int  `json:"goals"`
	Assists         int  `json:"assists"`
	PassesCompleted int  `json:"passes_completed"`
	GoalsSaved      int  `json:"goals_saved"`
	GoalsAllowed    int  `json:"goals_allowed"`
}

// PlayerStatRecord is one persisted stat row.
type PlayerStatRecord struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
	PartialStats
}

// MatchEventRecord is one persisted event log entry.
type MatchEventRecord struct {
	ID          string `json:"id"`
	MatchID     string `json:"match_id"`
	PlayerID    string `json:"player_id,omitempty"`
	EventType   string `json:"event_type"`
	Minute      int    `json:"minute"`
	TeamID      string `json:"team_id"`
	Description string `json:"description,omitempty"`
}
