package match

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewSession initializes a session in NotStarted with zeroed counters for
// every roster player, optionally seeded from a previously loaded snapshot.
func NewSession(cfg Config) *Session {
	s := &Session{
		MatchID:   cfg.MatchID,
		Team1ID:   cfg.Team1ID,
		Team2ID:   cfg.Team2ID,
		Team1Name: cfg.Team1Name,
		Team2Name: cfg.Team2Name,
		status:    StatusNotStarted,
		stats:     make(map[string]*PlayerStat),
		rosters: map[TeamSide][]RosterPlayer{
			TeamOne: append([]RosterPlayer(nil), cfg.Roster1...),
			TeamTwo: append([]RosterPlayer(nil), cfg.Roster2...),
		},
		now: time.Now,
	}
	for _, roster := range s.rosters {
		for _, p := range roster {
			stat := PlayerStat{PlayerID: p.ID, PlayerName: p.Name}
			if seed, ok := cfg.Stats[p.ID]; ok {
				stat = seed
				stat.PlayerID = p.ID
			}
			s.stats[p.ID] = &stat
		}
	}
	return s
}

// ResolveTeam maps a team id from the wire onto one of the two sides by
// exact equality. A message matching neither side must be dropped by the
// caller, never misattributed.
func (s *Session) ResolveTeam(teamID string) (TeamSide, error) {
	switch teamID {
	case s.Team1ID:
		return TeamOne, nil
	case s.Team2ID:
		return TeamTwo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTeam, teamID)
	}
}

// TeamID returns the external id for a side.
func (s *Session) TeamID(side TeamSide) string {
	if side == TeamOne {
		return s.Team1ID
	}
	return s.Team2ID
}

// Start transitions the session to Running. Safe to call repeatedly; a
// running or ended match is left untouched.
func (s *Session) Start() []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning || s.status == StatusEnded {
		return nil
	}
	s.status = StatusRunning
	return []Announcement{{Kind: AnnounceStart, Minute: s.minute()}}
}

// Pause enters half-time. The guard is the running flag only: a second pause
// after a resume is accepted at this layer, matching observed behavior. The
// presenting layer is the one hiding the control.
func (s *Session) Pause() []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return nil
	}
	s.status = StatusHalfTime
	s.appendEvent(EventHalfTime, "", "", "", "half time", s.minute())
	return nil
}

// Resume leaves half-time. The first resume burns the single permitted
// stoppage flag.
func (s *Session) Resume() []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusHalfTime {
		return nil
	}
	s.status = StatusRunning
	s.hasUsedHalfTime = true
	s.appendEvent(EventResumeMatch, "", "", "", "match resumed", s.minute())
	return nil
}

// End terminates the match from any non-Ended state. Idempotent: a second
// call is a no-op.
func (s *Session) End() []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusEnded {
		return nil
	}
	s.status = StatusEnded
	return []Announcement{{Kind: AnnounceEnd, Minute: s.minute()}}
}

// Tick advances the match clock by one second. Effective only while Running;
// every on-field player's TimePlayed is set to the new timer value.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return
	}
	s.timer++
	for _, stat := range s.stats {
		if stat.IsPlaying {
			stat.TimePlayed = s.timer
		}
	}
}

// AddGoal credits a goal to a tracked player and the owning team.
func (s *Session) AddGoal(playerID, playerName string, side TeamSide) ([]Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stat, ok := s.stats[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, playerID)
	}
	stat.Goals++
	s.addScore(side, 1)
	minute := s.minute()
	s.appendEvent(EventGoal, playerID, playerName, s.teamID(side), fmt.Sprintf("goal by %s", playerName), minute)
	return []Announcement{{
		Kind:       AnnounceGoal,
		TeamID:     s.teamID(side),
		PlayerID:   playerID,
		PlayerName: playerName,
		Minute:     minute,
	}}, nil
}

// AddAssist credits an assist to a tracked player.
func (s *Session) AddAssist(playerID, playerName string, side TeamSide) ([]Announcement, error) {
	return s.addCounter(playerID, playerName, side, EventAssist, AnnounceAssist, func(stat *PlayerStat) { stat.Assists++ })
}

// AddPass credits a completed pass to a tracked player.
func (s *Session) AddPass(playerID, playerName string, side TeamSide) ([]Announcement, error) {
	return s.addCounter(playerID, playerName, side, EventPass, AnnouncePass, func(stat *PlayerStat) { stat.PassesCompleted++ })
}

// AddGoalSaved credits a save to a tracked goalkeeper.
func (s *Session) AddGoalSaved(playerID, playerName string, side TeamSide) ([]Announcement, error) {
	return s.addCounter(playerID, playerName, side, EventGoalSaved, AnnounceGoalSaved, func(stat *PlayerStat) { stat.GoalsSaved++ })
}

func (s *Session) addCounter(playerID, playerName string, side TeamSide, eventType EventType, kind AnnouncementKind, bump func(*PlayerStat)) ([]Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stat, ok := s.stats[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, playerID)
	}
	bump(stat)
	minute := s.minute()
	s.appendEvent(eventType, playerID, playerName, s.teamID(side), fmt.Sprintf("%s by %s", eventType, playerName), minute)
	return []Announcement{{
		Kind:       kind,
		TeamID:     s.teamID(side),
		PlayerID:   playerID,
		PlayerName: playerName,
		Minute:     minute,
	}}, nil
}

// AddGoalAllowed charges a goal against a tracked keeper. A goal allowed is,
// definitionally, a goal scored: the opposing team's score goes up and two
// events come out of the one call, a goal credited to the scoring team and a
// goal_allowed credited to the keeper.
func (s *Session) AddGoalAllowed(keeperID, keeperName string, keeperSide TeamSide) ([]Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stat, ok := s.stats[keeperID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, keeperID)
	}
	stat.GoalsAllowed++
	scoring := keeperSide.Opponent()
	s.addScore(scoring, 1)
	minute := s.minute()
	s.appendEvent(EventGoal, "", "", s.teamID(scoring), "goal", minute)
	s.appendEvent(EventGoalAllowed, keeperID, keeperName, s.teamID(keeperSide), fmt.Sprintf("goal allowed by %s", keeperName), minute)
	return []Announcement{{
		Kind:       AnnounceGoalAllowed,
		TeamID:     s.teamID(keeperSide),
		PlayerID:   keeperID,
		PlayerName: keeperName,
		Minute:     minute,
	}}, nil
}

// AddTeamGoal records a goal for a team with no registered individual
// players. If the opposing roster contains a goalkeeper, a coupled
// goal_allowed is synthesized for them atomically with the team goal, so
// keepers never miss the credit.
func (s *Session) AddTeamGoal(side TeamSide, teamName string) []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addScore(side, 1)
	minute := s.minute()
	s.appendEvent(EventGoal, "", "", s.teamID(side), fmt.Sprintf("goal by %s", teamName), minute)
	s.creditOpposingKeeper(side, minute)
	return []Announcement{{
		Kind:     AnnounceGoal,
		TeamID:   s.teamID(side),
		TeamName: teamName,
		Minute:   minute,
	}}
}

// creditOpposingKeeper applies the goal-allowed coupling for a team-level
// goal scored against side's opponent. Caller holds the lock.
func (s *Session) creditOpposingKeeper(scoring TeamSide, minute int) {
	opposing := scoring.Opponent()
	for _, p := range s.rosters[opposing] {
		if p.Position != PositionGoalkeeper {
			continue
		}
		if stat, ok := s.stats[p.ID]; ok {
			stat.GoalsAllowed++
		}
		s.appendEvent(EventGoalAllowed, p.ID, p.Name, s.teamID(opposing), fmt.Sprintf("goal allowed by %s", p.Name), minute)
		return
	}
}

// TogglePlayer flips a player's on-field flag. Self-inverse: two consecutive
// toggles restore the original value.
func (s *Session) TogglePlayer(playerID, playerName string, side TeamSide) ([]Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stat, ok := s.stats[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, playerID)
	}
	stat.IsPlaying = !stat.IsPlaying
	direction := ToggleOut
	eventType := EventPlayerOut
	if stat.IsPlaying {
		direction = ToggleIn
		eventType = EventPlayerIn
	}
	minute := s.minute()
	s.appendEvent(eventType, playerID, playerName, s.teamID(side), fmt.Sprintf("%s %s", playerName, direction), minute)
	return []Announcement{{
		Kind:       AnnouncePlayerToggle,
		TeamID:     s.teamID(side),
		PlayerID:   playerID,
		PlayerName: playerName,
		Direction:  direction,
		Minute:     minute,
	}}, nil
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Timer returns the elapsed match clock in seconds.
func (s *Session) Timer() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// Score returns both team scores.
func (s *Session) Score() (team1, team2 int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.team1Goals, s.team2Goals
}

// HasUsedHalfTime reports whether the single permitted stoppage was taken.
func (s *Session) HasUsedHalfTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUsedHalfTime
}

// Stat returns a copy of one player's counters.
func (s *Session) Stat(playerID string) (PlayerStat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stat, ok := s.stats[playerID]
	if !ok {
		return PlayerStat{}, false
	}
	return *stat, true
}

// Stats returns a copy of all player counters keyed by player id.
func (s *Session) Stats() map[string]PlayerStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]PlayerStat, len(s.stats))
	for id, stat := range s.stats {
		out[id] = *stat
	}
	return out
}

// Events returns a copy of the append-only event log.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Roster returns the roster snapshot for one side.
func (s *Session) Roster(side TeamSide) []RosterPlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RosterPlayer(nil), s.rosters[side]...)
}

// minute derives the display minute from the local timer, never below 1.
// Caller holds the lock.
func (s *Session) minute() int {
	m := s.timer / 60
	if m < 1 {
		return 1
	}
	return m
}

func (s *Session) teamID(side TeamSide) string {
	if side == TeamOne {
		return s.Team1ID
	}
	return s.Team2ID
}

func (s *Session) addScore(side TeamSide, n int) {
	if side == TeamOne {
		s.team1Goals += n
	} else {
		s.team2Goals += n
	}
}

func (s *Session) appendEvent(eventType EventType, playerID, playerName, teamID, description string, minute int) {
	s.events = append(s.events, Event{
		ID:          uuid.NewString(),
		Minute:      minute,
		Timestamp:   s.now().UnixMilli(),
		Type:        eventType,
		PlayerID:    playerID,
		PlayerName:  playerName,
		TeamID:      teamID,
		Description: description,
	})
	log.Debug("match event appended", "matchID", s.MatchID, "type", eventType, "player", playerName, "minute", minute)
}
