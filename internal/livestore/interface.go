package livestore

// LiveStore is the persistence gateway's write API plus the read side the
// HTTP surface serves. The write path is invoked once, at match end, to make
// the in-memory stats, score and event log durable.
type LiveStore interface {
	CreateLiveMatch(m LiveMatch) error
	UpdateLivePlayerStats(matchID, playerID string, stats PartialStats) error
	UpdateLiveMatchScore(matchID string, team1Goals, team2Goals int) error
	CreateMatchEvent(e MatchEventRecord) error
	EndLiveMatch(matchID string) error

	GetLiveMatch(matchID string) (*LiveMatch, error)
	GetLiveMatches() ([]LiveMatch, error)
	GetMatchEvents(matchID string) ([]MatchEventRecord, error)
	GetMatchPlayerStats(matchID string) ([]PlayerStatRecord, error)

	Clear()
	ClearMatch(matchID string)
}
