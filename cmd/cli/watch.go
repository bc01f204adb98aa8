package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clubsync/internal/broadcast"
	"clubsync/internal/hub"
	"clubsync/internal/livestore"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [matchID]",
	Short: "Follow a live match from the terminal",
	Long: `Joins the match channel over the relay hub and applies incoming frames
to a local session, printing the running score as it changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchMatch(cmd.Context(), args[0])
	},
}

func fetchJSON(endpoint string, v any) error {
	resp, err := http.Get(host + endpoint)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func watchMatch(ctx context.Context, matchID string) error {
	var m livestore.LiveMatch
	if err := fetchJSON("/match?matchID="+url.QueryEscape(matchID), &m); err != nil {
		return err
	}
	var roster1, roster2 []match.RosterPlayer
	if err := fetchJSON("/roster?teamID="+url.QueryEscape(m.Team1ID), &roster1); err != nil {
		return err
	}
	if err := fetchJSON("/roster?teamID="+url.QueryEscape(m.Team2ID), &roster2); err != nil {
		return err
	}

	session := match.NewSession(match.Config{
		MatchID:   m.ID,
		Team1ID:   m.Team1ID,
		Team2ID:   m.Team2ID,
		Team1Name: m.Team1Name,
		Team2Name: m.Team2Name,
		Roster1:   roster1,
		Roster2:   roster2,
	})

	conn, ctx, cancel, err := connectRelay(ctx, "watcher-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer cancel()
	defer conn.Close()

	client := broadcast.New(session, conn, metrics.NewService())
	if err := client.Join(); err != nil {
		return err
	}
	defer client.Leave()

	// The broadcast client applies each frame; this subscription only
	// prints the resulting score.
	printSub := conn.Subscribe(hub.MatchRoom(m.ID), func(env hub.Envelope) {
		team1, team2 := session.Score()
		fmt.Printf("[%s] %s %d - %d %s\n", env.Type, session.Team1Name, team1, team2, session.Team2Name)
	})
	defer conn.Unsubscribe(printSub)

	fmt.Printf("Watching %s vs %s (%s). Ctrl-C to stop.\n", m.Team1Name, m.Team2Name, m.ID)
	<-ctx.Done()
	return nil
}
