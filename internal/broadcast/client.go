package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"clubsync/internal/hub"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
)

// New creates a broadcast Client for one session.
func New(session *match.Session, channel Channel, metricsSvc metrics.Metrics) *Client {
	return &Client{
		session: session,
		channel: channel,
		metrics: metricsSvc,
	}
}

// Session exposes the underlying match session.
func (c *Client) Session() *match.Session {
	return c.session
}

// Join enters the match channel and registers the single inbound
// subscription. A client joining after the match started receives no
// backlog: its log begins from whatever snapshot was loaded at
// initialization and it silently misses earlier frames.
func (c *Client) Join() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil
	}
	room := hub.MatchRoom(c.session.MatchID)
	if err := c.channel.Join(room); err != nil {
		return fmt.Errorf("failed to join match channel: %w", err)
	}
	c.sub = c.channel.Subscribe(room, c.apply)
	log.Info("joined match channel", "matchID", c.session.MatchID)
	return nil
}

// Leave unsubscribes the exact registration made in Join and withdraws from
// the channel. Idempotent.
func (c *Client) Leave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	c.channel.Unsubscribe(c.sub)
	c.sub = nil
	if err := c.channel.Leave(hub.MatchRoom(c.session.MatchID)); err != nil {
		return fmt.Errorf("failed to leave match channel: %w", err)
	}
	log.Info("left match channel", "matchID", c.session.MatchID)
	return nil
}

// publish sends the announcements a transition produced. State is already
// mutated when this runs: the local view is optimistic and a failed publish
// is reported, never rolled back.
func (c *Client) publish(announcements []match.Announcement) error {
	room := hub.MatchRoom(c.session.MatchID)
	for _, a := range announcements {
		payload, err := json.Marshal(MatchMessage{
			MatchID:    c.session.MatchID,
			TeamID:     a.TeamID,
			TeamName:   a.TeamName,
			PlayerID:   a.PlayerID,
			PlayerName: a.PlayerName,
			Direction:  a.Direction,
			Minute:     a.Minute,
		})
		if err != nil {
			return fmt.Errorf("failed to encode match message: %w", err)
		}
		if err := c.channel.Send(hub.Envelope{Type: string(a.Kind), Room: room, Payload: payload}); err != nil {
			return fmt.Errorf("failed to publish %s: %w", a.Kind, err)
		}
		c.metrics.IncMessagesPublished()
	}
	return nil
}

// Start begins the match locally and announces it.
func (c *Client) Start() error {
	return c.publish(c.session.Start())
}

// Pause enters half-time. Local only: the channel surface carries no
// stoppage frame.
func (c *Client) Pause() {
	c.session.Pause()
}

// Resume leaves half-time. Local only, like Pause.
func (c *Client) Resume() {
	c.session.Resume()
}

// End terminates the match locally and announces it.
func (c *Client) End() error {
	return c.publish(c.session.End())
}

// AddGoal mutates local state first, then broadcasts.
func (c *Client) AddGoal(playerID, playerName string, side match.TeamSide) error {
	announcements, err := c.session.AddGoal(playerID, playerName, side)
	if err != nil {
		return err
	}
	return c.publish(announcements)
}

// AddAssist mutates local state first, then broadcasts.
func (c *Client) AddAssist(playerID, playerName string, side match.TeamSide) error {
	announcements, err := c.session.AddAssist(playerID, playerName, side)
	if err != nil {
		return err
	}
	return c.publish(announcements)
}

// AddPass mutates local state first, then broadcasts.
func (c *Client) AddPass(playerID, playerName string, side match.TeamSide) error {
	announcements, err := c.session.AddPass(playerID, playerName, side)
	if err != nil {
		return err
	}
	return c.publish(announcements)
}

// AddGoalSaved mutates local state first, then broadcasts.
func (c *Client) AddGoalSaved(playerID, playerName string, side match.TeamSide) error {
	announcements, err := c.session.AddGoalSaved(playerID, playerName, side)
	if err != nil {
		return err
	}
	return c.publish(announcements)
}

// AddGoalAllowed mutates local state first, then broadcasts.
func (c *Client) AddGoalAllowed(keeperID, keeperName string, keeperSide match.TeamSide) error {
	announcements, err := c.session.AddGoalAllowed(keeperID, keeperName, keeperSide)
	if err != nil {
		return err
	}
	return c.publish(announcements)
}

// AddTeamGoal mutates local state first, then broadcasts.
func (c *Client) AddTeamGoal(side match.TeamSide, teamName string) error {
	return c.publish(c.session.AddTeamGoal(side, teamName))
}

// TogglePlayer mutates local state first, then broadcasts.
func (c *Client) TogglePlayer(playerID, playerName string, side match.TeamSide) error {
	announcements, err := c.session.TogglePlayer(playerID, playerName, side)
	if err != nil {
		return err
	}
	return c.publish(announcements)
}

// RunClock drives the local 1 Hz tick until the context ends or the match
// does. The tick is local only; there is no central authoritative timer.
func (c *Client) RunClock(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.session.Status() == match.StatusEnded {
				return
			}
			c.session.Tick()
		}
	}
}
