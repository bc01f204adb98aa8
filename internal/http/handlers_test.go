package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"clubsync/internal/club"
	"clubsync/internal/config"
	"clubsync/internal/hub"
	"clubsync/internal/livestore"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
	"clubsync/internal/notifier"
	"clubsync/internal/processor"
	"clubsync/internal/pubsub"
)

type fakeInngest struct{}

func (fakeInngest) Serve() http.Handler { return http.NotFoundHandler() }

func (fakeInngest) SendEvent(name string, data map[string]any) {}

type testServer struct {
	server    *Server
	clubStore *club.Mock
	liveStore *livestore.Mock
	notifier  *notifier.Mock
	pubsub    *pubsub.MockPubSubClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clubStore := club.NewMock()
	liveStore := livestore.NewMock()
	pubsubClient := pubsub.NewMock("test-project")
	metricsMock := metrics.NewMock()
	notifierMock := notifier.NewMock()
	proc := processor.New(liveStore, notifierMock, metricsMock, pubsubClient, fakeInngest{})
	server := NewServer(clubStore, liveStore, metricsMock, http.NotFoundHandler(), config.Config{}, notifierMock, proc, hub.New(), pubsubClient, fakeInngest{})
	return &testServer{server: server, clubStore: clubStore, liveStore: liveStore, notifier: notifierMock, pubsub: pubsubClient}
}

func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)
	return w
}

func TestHealthCheckHandler(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK!", w.Body.String())
}

func TestListMatchesHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.liveStore.GetLiveMatchesFunc = func() ([]livestore.LiveMatch, error) {
		return []livestore.LiveMatch{{ID: "match-1", Team1Name: "Home FC", Team2Name: "Away FC"}}, nil
	}

	w := ts.do(t, http.MethodGet, "/matches", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var matches []livestore.LiveMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "match-1", matches[0].ID)
}

func TestGetMatchHandler(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing matchID", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/match", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown match", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/match?matchID=nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListMatchEventsHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.liveStore.GetMatchEventsFunc = func(matchID string) ([]livestore.MatchEventRecord, error) {
		return []livestore.MatchEventRecord{{ID: "ev-1", MatchID: matchID, EventType: "goal", Minute: 12}}, nil
	}

	w := ts.do(t, http.MethodGet, "/events?matchID=match-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var events []livestore.MatchEventRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "goal", events[0].EventType)

	t.Run("missing matchID", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/events", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTeamRosterHandler(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.clubStore.AddPlayer("p1", "Alice", "team-home", "forward"))

	w := ts.do(t, http.MethodGet, "/roster?teamID=team-home", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")

	t.Run("missing teamID", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/roster", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateLiveMatchHandler(t *testing.T) {
	ts := newTestServer(t)

	body := livestore.LiveMatch{ID: "match-1", Team1ID: "team-home", Team2ID: "team-away"}
	w := ts.do(t, http.MethodPost, "/live/match", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.liveStore.CreateLiveMatchCalls, 1)
	assert.Equal(t, "match-1", ts.liveStore.CreateLiveMatchCalls[0].ID)

	t.Run("missing id", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/live/match", livestore.LiveMatch{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dry run skips the store", func(t *testing.T) {
		before := len(ts.liveStore.CreateLiveMatchCalls)
		w := ts.do(t, http.MethodPost, "/live/match?dry_run=true", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, ts.liveStore.CreateLiveMatchCalls, before)
	})
}

func TestUpdatePlayerStatsHandler(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]any{
		"match_id":  "match-1",
		"player_id": "p1",
		"stats":     livestore.PartialStats{Goals: 2, TimePlayed: 540},
	}
	w := ts.do(t, http.MethodPost, "/live/stats", payload)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.liveStore.UpdateLivePlayerStatsCalls, 1)
	call := ts.liveStore.UpdateLivePlayerStatsCalls[0]
	assert.Equal(t, "p1", call.PlayerID)
	assert.Equal(t, 2, call.Stats.Goals)

	t.Run("missing player_id", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/live/stats", map[string]any{"match_id": "match-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateScoreHandler(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/live/score", map[string]any{
		"match_id":    "match-1",
		"team1_goals": 2,
		"team2_goals": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.liveStore.UpdateLiveMatchScoreCalls, 1)
	assert.Equal(t, 2, ts.liveStore.UpdateLiveMatchScoreCalls[0].Team1Goals)

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/live/score", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()
		ts.server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEndMatchHandler(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/live/end", map[string]any{"match_id": "match-1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.liveStore.EndLiveMatchCalls, 1)
	assert.Equal(t, "match-1", ts.liveStore.EndLiveMatchCalls[0].MatchID)

	t.Run("missing match_id", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/live/end", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestClearStoreHandler(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/clear?matchID=match-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cleared match match-1 from store!", w.Body.String())

	w = ts.do(t, http.MethodGet, "/clear", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Store cleared!", w.Body.String())
}

func testSnapshot(t *testing.T, ended bool) match.Snapshot {
	t.Helper()
	session := match.NewSession(match.Config{
		MatchID:   "match-1",
		Team1ID:   "team-home",
		Team2ID:   "team-away",
		Team1Name: "Home FC",
		Team2Name: "Away FC",
		Roster1:   []match.RosterPlayer{{ID: "p1", Name: "Alice", Position: "forward"}},
		Roster2:   []match.RosterPlayer{{ID: "p2", Name: "Bob", Position: "goalkeeper"}},
	})
	session.Start()
	_, err := session.AddGoal("p1", "Alice", match.TeamOne)
	require.NoError(t, err)
	if ended {
		session.End()
	}
	return session.Snapshot()
}

func TestStartMatchHandler(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/live/start", testSnapshot(t, false))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.liveStore.CreateLiveMatchCalls, 1)
	created := ts.liveStore.CreateLiveMatchCalls[0]
	assert.Equal(t, "match-1", created.ID)
	assert.Equal(t, "Home FC", created.Team1Name)
	require.Len(t, ts.notifier.SendMatchStartedNotificationCalls, 1)
	assert.Equal(t, "Home FC", ts.notifier.SendMatchStartedNotificationCalls[0].Summary.Team1Name)

	t.Run("missing match_id", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/live/start", match.Snapshot{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dry run skips the store", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, http.MethodPost, "/live/start?dry_run=true", testSnapshot(t, false))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, ts.liveStore.CreateLiveMatchCalls)
		assert.Len(t, ts.notifier.SendMatchStartedNotificationCalls, 1)
	})
}

func TestArchiveMatchHandler(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/live/archive", testSnapshot(t, true))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.liveStore.EndLiveMatchCalls, 1)
	assert.Equal(t, "match-1", ts.liveStore.EndLiveMatchCalls[0].MatchID)
	assert.NotEmpty(t, ts.liveStore.UpdateLivePlayerStatsCalls)
	require.Len(t, ts.pubsub.SendMessageCalls, 1)
	assert.Equal(t, string(pubsub.EventMatchArchived), ts.pubsub.SendMessageCalls[0].Topic)

	t.Run("running match is rejected", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, http.MethodPost, "/live/archive", testSnapshot(t, false))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Zero(t, ts.liveStore.Seq(), "no writes issued")
	})

	t.Run("missing match_id", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/live/archive", match.Snapshot{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignalingConfigHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.server.Cfg.Signaling = config.SignalingConfig{
		STUNServers:             []string{"stun:stun.example.org:3478"},
		HandshakeTimeoutSeconds: 15,
	}

	w := ts.do(t, http.MethodGet, "/signaling/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		STUNServers             []string `json:"stun_servers"`
		HandshakeTimeoutSeconds int      `json:"handshake_timeout_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, payload.STUNServers)
	assert.Equal(t, 15, payload.HandshakeTimeoutSeconds)
}

func TestMatchArchivedPushHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.pubsub.ProcessMessageFunc = func(data []byte, returnValue any) error {
		return msgpack.Unmarshal(data, returnValue)
	}

	raw, err := msgpack.Marshal(pubsub.MatchArchivedPayload{
		MatchID:    "match-1",
		Team1Goals: 2,
		Team2Goals: 1,
		Events:     5,
	})
	require.NoError(t, err)

	wrapper := fmt.Sprintf(`{"subscription":"sub-1","message":{"data":"%s"}}`, base64.StdEncoding.EncodeToString(raw))
	req := httptest.NewRequest(http.MethodPost, "/pubsub/match-archived", bytes.NewReader([]byte(wrapper)))
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.pubsub.ProcessMessageCalls, 1)

	t.Run("invalid base64", func(t *testing.T) {
		body := []byte(`{"message":{"data":"not base64!!"}}`)
		req := httptest.NewRequest(http.MethodPost, "/pubsub/match-archived", bytes.NewReader(body))
		w := httptest.NewRecorder()
		ts.server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
