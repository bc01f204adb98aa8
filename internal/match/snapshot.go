package match

import "time"

// Snapshot is the portable form of a session: everything needed to rebuild
// the same local view elsewhere. The operator client posts one to the server
// at kickoff and again at match end for archiving.
type Snapshot struct {
	MatchID         string                `json:"match_id"`
	Team1ID         string                `json:"team1_id"`
	Team2ID         string                `json:"team2_id"`
	Team1Name       string                `json:"team1_name"`
	Team2Name       string                `json:"team2_name"`
	Status          Status                `json:"status"`
	Timer           int                   `json:"timer"`
	Team1Goals      int                   `json:"team1_goals"`
	Team2Goals      int                   `json:"team2_goals"`
	HasUsedHalfTime bool                  `json:"has_used_half_time"`
	Roster1         []RosterPlayer        `json:"roster1,omitempty"`
	Roster2         []RosterPlayer        `json:"roster2,omitempty"`
	Stats           map[string]PlayerStat `json:"stats,omitempty"`
	Events          []Event               `json:"events,omitempty"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make(map[string]PlayerStat, len(s.stats))
	for id, stat := range s.stats {
		stats[id] = *stat
	}
	return Snapshot{
		MatchID:         s.MatchID,
		Team1ID:         s.Team1ID,
		Team2ID:         s.Team2ID,
		Team1Name:       s.Team1Name,
		Team2Name:       s.Team2Name,
		Status:          s.status,
		Timer:           s.timer,
		Team1Goals:      s.team1Goals,
		Team2Goals:      s.team2Goals,
		HasUsedHalfTime: s.hasUsedHalfTime,
		Roster1:         append([]RosterPlayer(nil), s.rosters[TeamOne]...),
		Roster2:         append([]RosterPlayer(nil), s.rosters[TeamTwo]...),
		Stats:           stats,
		Events:          append([]Event(nil), s.events...),
	}
}

// Restore rebuilds a session from a snapshot. Unlike NewSession it keeps
// every stat entry the snapshot carries, roster member or not, so an archive
// produced from a restored session matches the one the operator saw.
func Restore(snap Snapshot) *Session {
	s := &Session{
		MatchID:         snap.MatchID,
		Team1ID:         snap.Team1ID,
		Team2ID:         snap.Team2ID,
		Team1Name:       snap.Team1Name,
		Team2Name:       snap.Team2Name,
		status:          snap.Status,
		timer:           snap.Timer,
		team1Goals:      snap.Team1Goals,
		team2Goals:      snap.Team2Goals,
		hasUsedHalfTime: snap.HasUsedHalfTime,
		stats:           make(map[string]*PlayerStat, len(snap.Stats)),
		rosters: map[TeamSide][]RosterPlayer{
			TeamOne: append([]RosterPlayer(nil), snap.Roster1...),
			TeamTwo: append([]RosterPlayer(nil), snap.Roster2...),
		},
		events: append([]Event(nil), snap.Events...),
		now:    time.Now,
	}
	if s.status == "" {
		s.status = StatusNotStarted
	}
	for id, stat := range snap.Stats {
		st := stat
		st.PlayerID = id
		s.stats[id] = &st
	}
	return s
}
