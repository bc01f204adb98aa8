package club

import (
	"database/sql"
	"sync"
)

// store handles all database operations for the club.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// TeamInfo represents a team in the store.
type TeamInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerInfo represents a roster player in the store. Position is free text;
// "goalkeeper" is the value the live match machinery keys on.
type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TeamID   string `json:"team_id"`
	Position string `json:"position"`
}
