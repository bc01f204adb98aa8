package club

import "clubsync/internal/match"

// ClubStore defines the interface for interacting with the club's data.
type ClubStore interface {
	UpsertTeam(team TeamInfo) error
	GetTeam(teamID string) (*TeamInfo, error)
	UpsertPlayers(players []PlayerInfo) error
	AddPlayer(playerID, name, teamID, position string) error
	IsKnownPlayer(playerID string) bool
	GetAllPlayers() ([]PlayerInfo, error)
	GetTeamRoster(teamID string) ([]match.RosterPlayer, error)
	Clear()
}
