package match

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Replay methods apply messages received from other clients into the local
// session. They are idempotent per message in the sense that one message is
// applied exactly once by the broadcast layer; the minute always comes from
// the sender and is never recomputed here. Unknown players cost the counter
// update only, the event is still logged.

// ApplyStart replays a remote match start.
func (s *Session) ApplyStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning || s.status == StatusEnded {
		return
	}
	s.status = StatusRunning
}

// ApplyEnd replays a remote match end.
func (s *Session) ApplyEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusEnded
}

// ApplyGoal replays a remote goal. A message with no player id is a
// team-level goal and carries the keeper coupling, so every client converges
// on the same goal-allowed credit.
func (s *Session) ApplyGoal(side TeamSide, playerID, playerName string, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addScore(side, 1)
	if playerID == "" {
		s.appendEvent(EventGoal, "", "", s.teamID(side), "goal", minute)
		s.creditOpposingKeeper(side, minute)
		return
	}
	if stat, ok := s.stats[playerID]; ok {
		stat.Goals++
	} else {
		log.Debug("goal for untracked player, score only", "matchID", s.MatchID, "playerID", playerID)
	}
	s.appendEvent(EventGoal, playerID, playerName, s.teamID(side), fmt.Sprintf("goal by %s", playerName), minute)
}

// ApplyAssist replays a remote assist.
func (s *Session) ApplyAssist(side TeamSide, playerID, playerName string, minute int) {
	s.applyCounter(side, playerID, playerName, minute, EventAssist, func(stat *PlayerStat) { stat.Assists++ })
}

// ApplyPass replays a remote completed pass.
func (s *Session) ApplyPass(side TeamSide, playerID, playerName string, minute int) {
	s.applyCounter(side, playerID, playerName, minute, EventPass, func(stat *PlayerStat) { stat.PassesCompleted++ })
}

// ApplyGoalSaved replays a remote save.
func (s *Session) ApplyGoalSaved(side TeamSide, playerID, playerName string, minute int) {
	s.applyCounter(side, playerID, playerName, minute, EventGoalSaved, func(stat *PlayerStat) { stat.GoalsSaved++ })
}

func (s *Session) applyCounter(side TeamSide, playerID, playerName string, minute int, eventType EventType, bump func(*PlayerStat)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stat, ok := s.stats[playerID]; ok {
		bump(stat)
	} else {
		log.Debug("stat for untracked player, event only", "matchID", s.MatchID, "playerID", playerID, "type", eventType)
	}
	s.appendEvent(eventType, playerID, playerName, s.teamID(side), fmt.Sprintf("%s by %s", eventType, playerName), minute)
}

// ApplyGoalAllowed replays a remote goal charged to a keeper: opposing score
// plus the keeper's counter, with the same paired events the acting client
// logged.
func (s *Session) ApplyGoalAllowed(keeperSide TeamSide, keeperID, keeperName string, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scoring := keeperSide.Opponent()
	s.addScore(scoring, 1)
	if stat, ok := s.stats[keeperID]; ok {
		stat.GoalsAllowed++
	} else {
		log.Debug("goal allowed for untracked keeper, score only", "matchID", s.MatchID, "playerID", keeperID)
	}
	s.appendEvent(EventGoal, "", "", s.teamID(scoring), "goal", minute)
	s.appendEvent(EventGoalAllowed, keeperID, keeperName, s.teamID(keeperSide), fmt.Sprintf("goal allowed by %s", keeperName), minute)
}

// ApplyToggle replays a remote substitution. The direction is taken from the
// message, not flipped locally, so replays converge regardless of local
// state.
func (s *Session) ApplyToggle(side TeamSide, playerID, playerName string, direction ToggleDirection, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventType := EventPlayerOut
	if direction == ToggleIn {
		eventType = EventPlayerIn
	}
	if stat, ok := s.stats[playerID]; ok {
		stat.IsPlaying = direction == ToggleIn
	} else {
		log.Debug("toggle for untracked player, event only", "matchID", s.MatchID, "playerID", playerID)
	}
	s.appendEvent(eventType, playerID, playerName, s.teamID(side), fmt.Sprintf("%s %s", playerName, direction), minute)
}
