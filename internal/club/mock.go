package club

import (
	"sync"

	"clubsync/internal/match"
)

// Mock is a mock implementation of the ClubStore interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies
	GetTeamRosterFunc func(teamID string) ([]match.RosterPlayer, error)
	GetTeamFunc       func(teamID string) (*TeamInfo, error)

	// Call records
	UpsertTeamCalls    []TeamInfo
	UpsertPlayersCalls [][]PlayerInfo

	players map[string]PlayerInfo
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{players: make(map[string]PlayerInfo)}
}

func (m *Mock) UpsertTeam(team TeamInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertTeamCalls = append(m.UpsertTeamCalls, team)
	return nil
}

func (m *Mock) GetTeam(teamID string) (*TeamInfo, error) {
	m.mu.Lock()
	fn := m.GetTeamFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(teamID)
	}
	return nil, nil
}

func (m *Mock) UpsertPlayers(players []PlayerInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertPlayersCalls = append(m.UpsertPlayersCalls, players)
	for _, p := range players {
		m.players[p.ID] = p
	}
	return nil
}

func (m *Mock) AddPlayer(playerID, name, teamID, position string) error {
	return m.UpsertPlayers([]PlayerInfo{{ID: playerID, Name: name, TeamID: teamID, Position: position}})
}

func (m *Mock) IsKnownPlayer(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.players[playerID]
	return ok
}

func (m *Mock) GetAllPlayers() ([]PlayerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := make([]PlayerInfo, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	return players, nil
}

func (m *Mock) GetTeamRoster(teamID string) ([]match.RosterPlayer, error) {
	m.mu.Lock()
	fn := m.GetTeamRosterFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(teamID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var roster []match.RosterPlayer
	for _, p := range m.players {
		if p.TeamID == teamID {
			roster = append(roster, match.RosterPlayer{ID: p.ID, Name: p.Name, Position: p.Position})
		}
	}
	return roster, nil
}

func (m *Mock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = make(map[string]PlayerInfo)
}
