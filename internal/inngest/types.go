package inngest

import (
	"github.com/inngest/inngestgo"
)

type client struct {
	inngestClient inngestgo.Client
}

// MatchEndedData is the payload for the live/match.ended event.
type MatchEndedData struct {
	MatchID    string `json:"matchId"`
	Team1Goals int    `json:"team1Goals"`
	Team2Goals int    `json:"team2Goals"`
}
