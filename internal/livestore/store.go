package livestore

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
)

// New creates a new LiveStore backed by the given database.
func New(db *sql.DB) LiveStore {
	return &store{
		db: db,
	}
}

// CreateLiveMatch inserts the durable row for a match, or refreshes its team
// metadata when it already exists. The score is left alone on conflict; the
// score column is owned by the end-of-match write path.
func (s *store) CreateLiveMatch(m LiveMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := m.Status
	if status == "" {
		status = "live"
	}
	_, err := s.db.Exec(`
		INSERT INTO live_matches (id, team1_id, team2_id, team1_name, team2_name, team1_goals, team2_goals, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			team1_id = excluded.team1_id,
			team2_id = excluded.team2_id,
			team1_name = excluded.team1_name,
			team2_name = excluded.team2_name;
	`, m.ID, m.Team1ID, m.Team2ID, m.Team1Name, m.Team2Name, m.Team1Goals, m.Team2Goals, status)
	if err != nil {
		return fmt.Errorf("failed to create live match: %w", err)
	}
	return nil
}

// UpdateLivePlayerStats upserts one player's final counters for a match.
func (s *store) UpdateLivePlayerStats(matchID, playerID string, stats PartialStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO live_player_stats (match_id, player_id, is_playing, time_played, goals, assists, passes_completed, goals_saved, goals_allowed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id, player_id) DO UPDATE SET
			is_playing = excluded.is_playing,
			time_played = excluded.time_played,
			goals = excluded.goals,
			assists = excluded.assists,
			passes_completed = excluded.passes_completed,
			goals_saved = excluded.goals_saved,
			goals_allowed = excluded.goals_allowed;
	`, matchID, playerID, stats.IsPlaying, stats.TimePlayed, stats.Goals, stats.Assists, stats.PassesCompleted, stats.GoalsSaved, stats.GoalsAllowed)
	if err != nil {
		return fmt.Errorf("failed to update player stats for %s: %w", playerID, err)
	}
	return nil
}

// UpdateLiveMatchScore writes the final score.
func (s *store) UpdateLiveMatchScore(matchID string, team1Goals, team2Goals int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE live_matches SET team1_goals = ?, team2_goals = ? WHERE id = ?", team1Goals, team2Goals, matchID)
	if err != nil {
		return fmt.Errorf("failed to update match score: %w", err)
	}
	return nil
}

// CreateMatchEvent appends one event log entry.
func (s *store) CreateMatchEvent(e MatchEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO match_events (id, match_id, player_id, event_type, minute, team_id, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, e.ID, e.MatchID, nullable(e.PlayerID), e.EventType, e.Minute, e.TeamID, e.Description)
	if err != nil {
		return fmt.Errorf("failed to create match event: %w", err)
	}
	return nil
}

// EndLiveMatch marks the match ended. Issued only after all prior writes have
// settled; calling it again is harmless.
func (s *store) EndLiveMatch(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE live_matches SET status = 'ended' WHERE id = ?", matchID)
	if err != nil {
		return fmt.Errorf("failed to end live match: %w", err)
	}
	return nil
}

// GetLiveMatch retrieves one match row, or nil when absent.
func (s *store) GetLiveMatch(matchID string) (*LiveMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, team1_id, team2_id, team1_name, team2_name, team1_goals, team2_goals, status
		FROM live_matches WHERE id = ?
	`, matchID)
	var m LiveMatch
	err := row.Scan(&m.ID, &m.Team1ID, &m.Team2ID, &m.Team1Name, &m.Team2Name, &m.Team1Goals, &m.Team2Goals, &m.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetLiveMatches retrieves every match row.
func (s *store) GetLiveMatches() ([]LiveMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, team1_id, team2_id, team1_name, team2_name, team1_goals, team2_goals, status
		FROM live_matches
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []LiveMatch
	for rows.Next() {
		var m LiveMatch
		if err := rows.Scan(&m.ID, &m.Team1ID, &m.Team2ID, &m.Team1Name, &m.Team2Name, &m.Team1Goals, &m.Team2Goals, &m.Status); err != nil {
			log.Error("Failed to scan live match row", "error", err)
			continue
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetMatchEvents retrieves a match's event log ordered by minute then insert
// order.
func (s *store) GetMatchEvents(matchID string) ([]MatchEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, match_id, player_id, event_type, minute, team_id, description
		FROM match_events WHERE match_id = ? ORDER BY minute, rowid
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []MatchEventRecord
	for rows.Next() {
		var e MatchEventRecord
		var playerID sql.NullString
		if err := rows.Scan(&e.ID, &e.MatchID, &playerID, &e.EventType, &e.Minute, &e.TeamID, &e.Description); err != nil {
			log.Error("Failed to scan match event row", "error", err)
			continue
		}
		e.PlayerID = playerID.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetMatchPlayerStats retrieves every persisted stat row for a match.
func (s *store) GetMatchPlayerStats(matchID string) ([]PlayerStatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT match_id, player_id, is_playing, time_played, goals, assists, passes_completed, goals_saved, goals_allowed
		FROM live_player_stats WHERE match_id = ?
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PlayerStatRecord
	for rows.Next() {
		var r PlayerStatRecord
		if err := rows.Scan(&r.MatchID, &r.PlayerID, &r.IsPlaying, &r.TimePlayed, &r.Goals, &r.Assists, &r.PassesCompleted, &r.GoalsSaved, &r.GoalsAllowed); err != nil {
			log.Error("Failed to scan player stat row", "error", err)
			continue
		}
		stats = append(stats, r)
	}
	return stats, rows.Err()
}

// Clear removes everything. Test and operations helper.
func (s *store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"match_events", "live_player_stats", "live_matches"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			log.Error("Failed to clear table", "table", table, "error", err)
		}
	}
}

// ClearMatch removes one match and its dependents.
func (s *store) ClearMatch(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM match_events WHERE match_id = ?", matchID); err != nil {
		log.Error("Failed to clear match events", "matchID", matchID, "error", err)
	}
	if _, err := s.db.Exec("DELETE FROM live_player_stats WHERE match_id = ?", matchID); err != nil {
		log.Error("Failed to clear player stats", "matchID", matchID, "error", err)
	}
	if _, err := s.db.Exec("DELETE FROM live_matches WHERE id = ?", matchID); err != nil {
		log.Error("Failed to clear live match", "matchID", matchID, "error", err)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
