package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	acting := newTestSession()
	acting.Start()
	_, err := acting.AddGoal("p1", "Alice", TeamOne)
	require.NoError(t, err)
	_, err = acting.AddGoalAllowed("p4", "Dave", TeamTwo)
	require.NoError(t, err)
	for i := 0; i < 90; i++ {
		acting.Tick()
	}
	acting.End()

	restored := Restore(acting.Snapshot())

	assert.Equal(t, StatusEnded, restored.Status())
	assert.Equal(t, 90, restored.Timer())
	team1, team2 := restored.Score()
	actingTeam1, actingTeam2 := acting.Score()
	assert.Equal(t, actingTeam1, team1)
	assert.Equal(t, actingTeam2, team2)
	assert.Equal(t, acting.Stats(), restored.Stats())
	assert.Equal(t, acting.Events(), restored.Events())

	t.Run("rosters survive", func(t *testing.T) {
		assert.Equal(t, acting.Roster(TeamOne), restored.Roster(TeamOne))
		assert.Equal(t, acting.Roster(TeamTwo), restored.Roster(TeamTwo))
	})

	t.Run("team resolution still works", func(t *testing.T) {
		side, err := restored.ResolveTeam("team-away")
		require.NoError(t, err)
		assert.Equal(t, TeamTwo, side)
	})
}

func TestRestoreKeepsGhostStats(t *testing.T) {
	// A stat entry outside both rosters still archives: the operator may
	// have tracked a player who was later removed from the roster.
	restored := Restore(Snapshot{
		MatchID: "match-1",
		Team1ID: "team-home",
		Team2ID: "team-away",
		Status:  StatusEnded,
		Stats: map[string]PlayerStat{
			"ghost": {PlayerName: "Ghost", Goals: 1},
		},
	})

	stat, ok := restored.Stat("ghost")
	require.True(t, ok)
	assert.Equal(t, "ghost", stat.PlayerID)
	assert.Equal(t, 1, stat.Goals)
}

func TestRestoreDefaultsStatus(t *testing.T) {
	restored := Restore(Snapshot{MatchID: "match-1"})
	assert.Equal(t, StatusNotStarted, restored.Status())
}
