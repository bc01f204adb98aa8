package broadcast

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"clubsync/internal/hub"
	"clubsync/internal/match"
)

// apply is the inbound reducer: one frame in, at most one transition replayed
// into the local session. The team id is resolved by exact equality against
// the session's two sides; a frame matching neither is dropped and logged,
// never misattributed to a fallback team.
func (c *Client) apply(env hub.Envelope) {
	switch env.Type {
	case hub.MsgJoin, hub.MsgLeave:
		return
	}

	var msg MatchMessage
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		log.Warn("malformed match frame dropped", "matchID", c.session.MatchID, "type", env.Type, "error", err)
		c.metrics.IncMessagesDropped()
		return
	}

	switch match.AnnouncementKind(env.Type) {
	case match.AnnounceStart:
		c.session.ApplyStart()
	case match.AnnounceEnd:
		c.session.ApplyEnd()
	case match.AnnounceGoal:
		side, ok := c.resolve(msg.TeamID, env.Type)
		if !ok {
			return
		}
		c.session.ApplyGoal(side, msg.PlayerID, msg.PlayerName, msg.Minute)
	case match.AnnounceAssist:
		side, ok := c.resolve(msg.TeamID, env.Type)
		if !ok {
			return
		}
		c.session.ApplyAssist(side, msg.PlayerID, msg.PlayerName, msg.Minute)
	case match.AnnouncePass:
		side, ok := c.resolve(msg.TeamID, env.Type)
		if !ok {
			return
		}
		c.session.ApplyPass(side, msg.PlayerID, msg.PlayerName, msg.Minute)
	case match.AnnounceGoalSaved:
		side, ok := c.resolve(msg.TeamID, env.Type)
		if !ok {
			return
		}
		c.session.ApplyGoalSaved(side, msg.PlayerID, msg.PlayerName, msg.Minute)
	case match.AnnounceGoalAllowed:
		side, ok := c.resolve(msg.TeamID, env.Type)
		if !ok {
			return
		}
		c.session.ApplyGoalAllowed(side, msg.PlayerID, msg.PlayerName, msg.Minute)
	case match.AnnouncePlayerToggle:
		side, ok := c.resolve(msg.TeamID, env.Type)
		if !ok {
			return
		}
		c.session.ApplyToggle(side, msg.PlayerID, msg.PlayerName, msg.Direction, msg.Minute)
	default:
		log.Debug("unhandled match frame", "matchID", c.session.MatchID, "type", env.Type)
		return
	}
	c.metrics.IncMessagesApplied()
}

func (c *Client) resolve(teamID, frameType string) (match.TeamSide, bool) {
	side, err := c.session.ResolveTeam(teamID)
	if err != nil {
		log.Warn("frame for unrecognized team dropped", "matchID", c.session.MatchID, "type", frameType, "teamID", teamID)
		c.metrics.IncMessagesDropped()
		return 0, false
	}
	return side, true
}
