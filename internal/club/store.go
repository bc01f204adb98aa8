package club

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"

	"clubsync/internal/match"
)

// New creates a new ClubStore.
func New(db *sql.DB) ClubStore {
	return &store{
		db: db,
	}
}

// UpsertTeam inserts or refreshes one team.
func (s *store) UpsertTeam(team TeamInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO teams (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name;
	`, team.ID, team.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert team %s: %w", team.ID, err)
	}
	return nil
}

// GetTeam retrieves one team, or nil when absent.
func (s *store) GetTeam(teamID string) (*TeamInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT id, name FROM teams WHERE id = ?", teamID)
	var t TeamInfo
	err := row.Scan(&t.ID, &t.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertPlayers inserts or refreshes a batch of roster players in one
// transaction.
func (s *store) UpsertPlayers(players []PlayerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO players (id, name, team_id, position) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			team_id = excluded.team_id,
			position = excluded.position;
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.Exec(p.ID, p.Name, p.TeamID, p.Position); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// AddPlayer inserts a single roster player.
func (s *store) AddPlayer(playerID, name, teamID, position string) error {
	return s.UpsertPlayers([]PlayerInfo{{ID: playerID, Name: name, TeamID: teamID, Position: position}})
}

// IsKnownPlayer reports whether a player id exists in the roster.
func (s *store) IsKnownPlayer(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow("SELECT 1 FROM players WHERE id = ?", playerID).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Error("Failed to look up player", "playerID", playerID, "error", err)
		return false
	}
	return true
}

// GetAllPlayers retrieves the full roster.
func (s *store) GetAllPlayers() ([]PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, name, team_id, position FROM players ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []PlayerInfo
	for rows.Next() {
		var p PlayerInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.TeamID, &p.Position); err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// GetTeamRoster retrieves one team's roster as the snapshot shape match
// session initialization takes.
func (s *store) GetTeamRoster(teamID string) ([]match.RosterPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, name, position FROM players WHERE team_id = ? ORDER BY name", teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []match.RosterPlayer
	for rows.Next() {
		var p match.RosterPlayer
		if err := rows.Scan(&p.ID, &p.Name, &p.Position); err != nil {
			log.Error("Failed to scan roster row", "error", err)
			continue
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}

// Clear removes every team and player.
func (s *store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM players"); err != nil {
		log.Error("Failed to clear players", "error", err)
	}
	if _, err := s.db.Exec("DELETE FROM teams"); err != nil {
		log.Error("Failed to clear teams", "error", err)
	}
}
