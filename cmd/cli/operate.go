package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clubsync/internal/broadcast"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
)

var (
	operateTeam1     string
	operateTeam2     string
	operateTeam1Name string
	operateTeam2Name string
)

func init() {
	operateCmd.Flags().StringVar(&operateTeam1, "team1", "", "home team id")
	operateCmd.Flags().StringVar(&operateTeam2, "team2", "", "away team id")
	operateCmd.Flags().StringVar(&operateTeam1Name, "team1-name", "", "home team display name (defaults to the team id)")
	operateCmd.Flags().StringVar(&operateTeam2Name, "team2-name", "", "away team display name (defaults to the team id)")
	operateCmd.MarkFlagRequired("team1")
	operateCmd.MarkFlagRequired("team2")
	rootCmd.AddCommand(operateCmd)
}

var operateCmd = &cobra.Command{
	Use:   "operate [matchID]",
	Short: "Run a match from the terminal as the pitch-side operator",
	Long: `Drives a live match end to end: broadcasts every event on the match
channel, registers the kickoff with the server, and archives the final state
when the match ends. Commands are read from stdin; type "help" for the list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperate(cmd.Context(), args[0])
	},
}

// rosterIndex resolves the player references typed at the prompt.
type rosterIndex map[string]struct {
	name string
	side match.TeamSide
}

func buildRosterIndex(roster1, roster2 []match.RosterPlayer) rosterIndex {
	idx := make(rosterIndex, len(roster1)+len(roster2))
	for _, p := range roster1 {
		idx[p.ID] = struct {
			name string
			side match.TeamSide
		}{p.Name, match.TeamOne}
	}
	for _, p := range roster2 {
		idx[p.ID] = struct {
			name string
			side match.TeamSide
		}{p.Name, match.TeamTwo}
	}
	return idx
}

func postJSON(endpoint string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	resp, err := http.Post(host+endpoint, "application/json", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, endpoint, strings.TrimSpace(string(msg)))
	}
	return nil
}

func runOperate(ctx context.Context, matchID string) error {
	team1Name := operateTeam1Name
	if team1Name == "" {
		team1Name = operateTeam1
	}
	team2Name := operateTeam2Name
	if team2Name == "" {
		team2Name = operateTeam2
	}

	var roster1, roster2 []match.RosterPlayer
	if err := fetchJSON("/roster?teamID="+url.QueryEscape(operateTeam1), &roster1); err != nil {
		return err
	}
	if err := fetchJSON("/roster?teamID="+url.QueryEscape(operateTeam2), &roster2); err != nil {
		return err
	}
	players := buildRosterIndex(roster1, roster2)

	session := match.NewSession(match.Config{
		MatchID:   matchID,
		Team1ID:   operateTeam1,
		Team2ID:   operateTeam2,
		Team1Name: team1Name,
		Team2Name: team2Name,
		Roster1:   roster1,
		Roster2:   roster2,
	})

	conn, ctx, cancel, err := connectRelay(ctx, "operator-"+uuid.NewString())
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

	fmt.Printf("Operating %s vs %s (%s). Type \"help\" for commands.\n", team1Name, team2Name, matchID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		done, err := applyOperatorCommand(ctx, client, players, fields)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if done {
			return nil
		}
	}
}

func applyOperatorCommand(ctx context.Context, client *broadcast.Client, players rosterIndex, fields []string) (bool, error) {
	session := client.Session()

	playerArg := func() (string, string, match.TeamSide, error) {
		if len(fields) < 2 {
			return "", "", 0, fmt.Errorf("usage: %s <playerID>", fields[0])
		}
		p, ok := players[fields[1]]
		if !ok {
			return "", "", 0, fmt.Errorf("unknown player %q", fields[1])
		}
		return fields[1], p.name, p.side, nil
	}

	switch fields[0] {
	case "help":
		fmt.Println(`start, pause, resume, end, score
goal | assist | pass | save | allow | toggle  <playerID>
teamgoal <1|2>`)
	case "start":
		if err := client.Start(); err != nil {
			return false, err
		}
		if err := postJSON("/live/start", session.Snapshot()); err != nil {
			return false, fmt.Errorf("failed to register kickoff: %w", err)
		}
		go client.RunClock(ctx)
		fmt.Println("Match started.")
	case "pause":
		client.Pause()
	case "resume":
		client.Resume()
	case "goal":
		id, name, side, err := playerArg()
		if err != nil {
			return false, err
		}
		return false, client.AddGoal(id, name, side)
	case "assist":
		id, name, side, err := playerArg()
		if err != nil {
			return false, err
		}
		return false, client.AddAssist(id, name, side)
	case "pass":
		id, name, side, err := playerArg()
		if err != nil {
			return false, err
		}
		return false, client.AddPass(id, name, side)
	case "save":
		id, name, side, err := playerArg()
		if err != nil {
			return false, err
		}
		return false, client.AddGoalSaved(id, name, side)
	case "allow":
		id, name, side, err := playerArg()
		if err != nil {
			return false, err
		}
		return false, client.AddGoalAllowed(id, name, side)
	case "toggle":
		id, name, side, err := playerArg()
		if err != nil {
			return false, err
		}
		return false, client.TogglePlayer(id, name, side)
	case "teamgoal":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: teamgoal <1|2>")
		}
		switch fields[1] {
		case "1":
			return false, client.AddTeamGoal(match.TeamOne, session.Team1Name)
		case "2":
			return false, client.AddTeamGoal(match.TeamTwo, session.Team2Name)
		default:
			return false, fmt.Errorf("teamgoal wants 1 or 2, got %q", fields[1])
		}
	case "score":
		team1, team2 := session.Score()
		fmt.Printf("%s %d - %d %s\n", session.Team1Name, team1, team2, session.Team2Name)
	case "end":
		if err := client.End(); err != nil {
			return false, err
		}
		if err := postJSON("/live/archive", session.Snapshot()); err != nil {
			return false, fmt.Errorf("failed to archive match: %w", err)
		}
		team1, team2 := session.Score()
		fmt.Printf("Full time: %s %d - %d %s. Archived.\n", session.Team1Name, team1, team2, session.Team2Name)
		return true, nil
	case "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}
