package match

import (
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle state of a match session.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusRunning    Status = "RUNNING"
	StatusHalfTime   Status = "HALF_TIME"
	StatusEnded      Status = "ENDED"
)

// TeamSide is a closed identifier for one of the two teams in a session.
// Messages referencing any other team id must resolve to an error, never to a
// silent fallback.
type TeamSide int

const (
	TeamOne TeamSide = iota + 1
	TeamTwo
)

// Opponent returns the other side.
func (t TeamSide) Opponent() TeamSide {
	if t == TeamOne {
		return TeamTwo
	}
	return TeamOne
}

// EventType identifies a single entry in the match event log.
type EventType string

const (
	EventGoal        EventType = "goal"
	EventAssist      EventType = "assist"
	EventPass        EventType = "pass"
	EventGoalSaved   EventType = "goal_saved"
	EventGoalAllowed EventType = "goal_allowed"
	EventPlayerIn    EventType = "player_in"
	EventPlayerOut   EventType = "player_out"
	EventHalfTime    EventType = "half_time"
	EventResumeMatch EventType = "resume_match"
)

// PositionGoalkeeper is the roster position that receives the coupled
// goal-allowed credit on team-level goals.
const PositionGoalkeeper = "goalkeeper"

var (
	// ErrPlayerNotFound is returned when a stat mutation references a player
	// that is not in the session's stats map. No state is changed.
	ErrPlayerNotFound = errors.New("player not found in match session")
	// ErrUnknownTeam is returned when a team id matches neither side of the
	// session.
	ErrUnknownTeam = errors.New("team id does not belong to this match")
)

// RosterPlayer is one entry of the roster snapshot supplied at
// initialization.
type RosterPlayer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

// PlayerStat tracks one player's live counters. TimePlayed follows the match
// clock: it is set to the current timer value on every tick the player is on
// the field, so a player who re-enters later jumps to the current timer
// rather than resuming an accumulated count.
type PlayerStat struct {
	PlayerID        string `json:"player_id"`
	PlayerName      string `json:"player_name"`
	IsPlaying       bool   `json:"is_playing"`
	TimePlayed      int    `json:"time_played"`
	Goals           int    `json:"goals"`
	Assists         int    `json:"assists"`
	PassesCompleted int    `json:"passes_completed"`
	GoalsSaved      int    `json:"goals_saved"`
	GoalsAllowed    int    `json:"goals_allowed"`
}

// Event is one append-only entry in the match log. Timestamp is local wall
// clock in milliseconds and is used only as a display tie-break.
type Event struct {
	ID          string    `json:"id"`
	Minute      int       `json:"minute"`
	Timestamp   int64     `json:"timestamp"`
	Type        EventType `json:"event_type"`
	PlayerID    string    `json:"player_id,omitempty"`
	PlayerName  string    `json:"player_name,omitempty"`
	TeamID      string    `json:"team_id"`
	Description string    `json:"description,omitempty"`
}

// AnnouncementKind names the outbound message a transition wants published on
// the match channel.
type AnnouncementKind string

const (
	AnnounceStart        AnnouncementKind = "match:start"
	AnnounceGoal         AnnouncementKind = "match:goal"
	AnnounceAssist       AnnouncementKind = "match:assist"
	AnnouncePass         AnnouncementKind = "match:pass"
	AnnounceGoalSaved    AnnouncementKind = "match:goal_saved"
	AnnounceGoalAllowed  AnnouncementKind = "match:goal_allowed"
	AnnouncePlayerToggle AnnouncementKind = "match:player_toggle"
	AnnounceEnd          AnnouncementKind = "match:end"
)

// ToggleDirection is the normalized player_toggle vocabulary.
type ToggleDirection string

const (
	ToggleIn  ToggleDirection = "in"
	ToggleOut ToggleDirection = "out"
)

// Announcement is an outbound intent produced by a transition. The session
// itself never touches the network; the broadcast layer turns announcements
// into wire messages.
type Announcement struct {
	Kind       AnnouncementKind
	TeamID     string
	TeamName   string
	PlayerID   string
	PlayerName string
	Direction  ToggleDirection
	Minute     int
}

// Config describes a session at initialization time.
type Config struct {
	MatchID    string
	Team1ID    string
	Team2ID    string
	Team1Name  string
	Team2Name  string
	Roster1    []RosterPlayer
	Roster2    []RosterPlayer
	// Stats optionally seeds counters from a previously loaded snapshot,
	// keyed by player id. Players absent from the rosters are ignored.
	Stats map[string]PlayerStat
}

// Session is the single per-client in-memory representation of one match.
// Every client's copy is independently authoritative for its own optimistic
// local view; reconciliation happens by replaying received messages.
type Session struct {
	mu sync.Mutex

	MatchID   string
	Team1ID   string
	Team2ID   string
	Team1Name string
	Team2Name string

	status          Status
	timer           int
	team1Goals      int
	team2Goals      int
	hasUsedHalfTime bool

	stats   map[string]*PlayerStat
	rosters map[TeamSide][]RosterPlayer
	events  []Event

	now func() time.Time
}
