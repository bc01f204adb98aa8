package livestore

import "sync"

// Mock is a call-recording implementation of LiveStore for testing.
// It is safe for concurrent use and tracks a global call sequence so tests
// can assert ordering across methods.
type Mock struct {
	mu  sync.Mutex
	seq int

	// Spies
	UpdateLivePlayerStatsFunc func(matchID, playerID string, stats PartialStats) error
	UpdateLiveMatchScoreFunc  func(matchID string, team1Goals, team2Goals int) error
	CreateMatchEventFunc      func(e MatchEventRecord) error
	EndLiveMatchFunc          func(matchID string) error
	GetLiveMatchFunc          func(matchID string) (*LiveMatch, error)
	GetLiveMatchesFunc        func() ([]LiveMatch, error)
	GetMatchEventsFunc        func(matchID string) ([]MatchEventRecord, error)

	// Call records
	CreateLiveMatchCalls       []LiveMatch
	UpdateLivePlayerStatsCalls []UpdatePlayerStatsCall
	UpdateLiveMatchScoreCalls  []UpdateScoreCall
	CreateMatchEventCalls      []MatchEventRecord
	EndLiveMatchCalls          []EndMatchCall
}

// UpdatePlayerStatsCall holds the arguments for a call to UpdateLivePlayerStats.
type UpdatePlayerStatsCall struct {
	Seq      int
	MatchID  string
	PlayerID string
	Stats    PartialStats
}

// UpdateScoreCall holds the arguments for a call to UpdateLiveMatchScore.
type UpdateScoreCall struct {
	Seq        int
	MatchID    string
	Team1Goals int
	Team2Goals int
}

// EndMatchCall records the position of an EndLiveMatch call in the sequence.
type EndMatchCall struct {
	Seq     int
	MatchID string
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) bump() int {
	m.seq++
	return m.seq
}

func (m *Mock) CreateLiveMatch(match LiveMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bump()
	m.CreateLiveMatchCalls = append(m.CreateLiveMatchCalls, match)
	return nil
}

func (m *Mock) UpdateLivePlayerStats(matchID, playerID string, stats PartialStats) error {
	m.mu.Lock()
	m.UpdateLivePlayerStatsCalls = append(m.UpdateLivePlayerStatsCalls, UpdatePlayerStatsCall{Seq: m.bump(), MatchID: matchID, PlayerID: playerID, Stats: stats})
	fn := m.UpdateLivePlayerStatsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(matchID, playerID, stats)
	}
	return nil
}

func (m *Mock) UpdateLiveMatchScore(matchID string, team1Goals, team2Goals int) error {
	m.mu.Lock()
	m.UpdateLiveMatchScoreCalls = append(m.UpdateLiveMatchScoreCalls, UpdateScoreCall{Seq: m.bump(), MatchID: matchID, Team1Goals: team1Goals, Team2Goals: team2Goals})
	fn := m.UpdateLiveMatchScoreFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(matchID, team1Goals, team2Goals)
	}
	return nil
}

func (m *Mock) CreateMatchEvent(e MatchEventRecord) error {
	m.mu.Lock()
	m.bump()
	m.CreateMatchEventCalls = append(m.CreateMatchEventCalls, e)
	fn := m.CreateMatchEventFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(e)
	}
	return nil
}

func (m *Mock) EndLiveMatch(matchID string) error {
	m.mu.Lock()
	m.EndLiveMatchCalls = append(m.EndLiveMatchCalls, EndMatchCall{Seq: m.bump(), MatchID: matchID})
	fn := m.EndLiveMatchFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(matchID)
	}
	return nil
}

func (m *Mock) GetLiveMatch(matchID string) (*LiveMatch, error) {
	m.mu.Lock()
	fn := m.GetLiveMatchFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(matchID)
	}
	return nil, nil
}

func (m *Mock) GetLiveMatches() ([]LiveMatch, error) {
	m.mu.Lock()
	fn := m.GetLiveMatchesFunc
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil, nil
}

func (m *Mock) GetMatchEvents(matchID string) ([]MatchEventRecord, error) {
	m.mu.Lock()
	fn := m.GetMatchEventsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(matchID)
	}
	return nil, nil
}

func (m *Mock) GetMatchPlayerStats(matchID string) ([]PlayerStatRecord, error) {
	return nil, nil
}

func (m *Mock) Clear() {}

func (m *Mock) ClearMatch(matchID string) {}

// Seq returns the number of recorded calls so far.
func (m *Mock) Seq() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}
