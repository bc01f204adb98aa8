package broadcast

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubsync/internal/hub"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
)

// fakeChannel is an in-process Channel that records everything and lets the
// test push frames straight into subscribed handlers.
type fakeChannel struct {
	mu       sync.Mutex
	joined   []string
	left     []string
	sent     []hub.Envelope
	handlers map[*hub.Subscription]hub.Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[*hub.Subscription]hub.Handler)}
}

func (f *fakeChannel) Join(room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, room)
	return nil
}

func (f *fakeChannel) Leave(room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, room)
	return nil
}

func (f *fakeChannel) Send(env hub.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeChannel) Subscribe(room string, h hub.Handler) *hub.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &hub.Subscription{}
	f.handlers[sub] = h
	return sub
}

func (f *fakeChannel) Unsubscribe(sub *hub.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, sub)
}

// deliver pushes one frame into every registered handler, like the read loop
// would.
func (f *fakeChannel) deliver(env hub.Envelope) {
	f.mu.Lock()
	handlers := make([]hub.Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(env)
	}
}

func (f *fakeChannel) sentEnvelopes() []hub.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Envelope(nil), f.sent...)
}

func newTestClient(t *testing.T) (*Client, *fakeChannel, *metrics.Mock) {
	t.Helper()
	session := match.NewSession(match.Config{
		MatchID:   "match-1",
		Team1ID:   "team-home",
		Team2ID:   "team-away",
		Team1Name: "Home FC",
		Team2Name: "Away FC",
		Roster1: []match.RosterPlayer{
			{ID: "p1", Name: "Alice", Position: "forward"},
			{ID: "p2", Name: "Bob", Position: match.PositionGoalkeeper},
		},
		Roster2: []match.RosterPlayer{
			{ID: "p3", Name: "Carol", Position: "midfielder"},
			{ID: "p4", Name: "Dave", Position: match.PositionGoalkeeper},
		},
	})
	channel := newFakeChannel()
	metricsSvc := metrics.NewMock()
	return New(session, channel, metricsSvc), channel, metricsSvc
}

func TestJoinLeave(t *testing.T) {
	client, channel, _ := newTestClient(t)

	require.NoError(t, client.Join())
	require.NoError(t, client.Join(), "join is idempotent")
	assert.Equal(t, []string{hub.MatchRoom("match-1")}, channel.joined)
	assert.Len(t, channel.handlers, 1)

	require.NoError(t, client.Leave())
	require.NoError(t, client.Leave(), "leave is idempotent")
	assert.Equal(t, []string{hub.MatchRoom("match-1")}, channel.left)
	assert.Empty(t, channel.handlers)
}

func TestPublishOnGoal(t *testing.T) {
	client, channel, metricsSvc := newTestClient(t)
	require.NoError(t, client.Join())
	require.NoError(t, client.Start())

	require.NoError(t, client.AddGoal("p1", "Alice", match.TeamOne))

	sent := channel.sentEnvelopes()
	require.Len(t, sent, 2, "start frame plus goal frame")
	assert.Equal(t, string(match.AnnounceStart), sent[0].Type)
	assert.Equal(t, string(match.AnnounceGoal), sent[1].Type)
	assert.Equal(t, hub.MatchRoom("match-1"), sent[1].Room)

	var msg MatchMessage
	require.NoError(t, json.Unmarshal(sent[1].Payload, &msg))
	assert.Equal(t, "team-home", msg.TeamID)
	assert.Equal(t, "p1", msg.PlayerID)
	assert.Equal(t, 1, msg.Minute)
	assert.Equal(t, 2, metricsSvc.MessagesPublished())
}

func TestPauseIsLocalOnly(t *testing.T) {
	client, channel, _ := newTestClient(t)
	require.NoError(t, client.Join())
	require.NoError(t, client.Start())

	before := len(channel.sentEnvelopes())
	client.Pause()
	client.Resume()
	assert.Len(t, channel.sentEnvelopes(), before, "no stoppage frames on the wire")
	assert.Equal(t, match.StatusRunning, client.Session().Status())
	assert.True(t, client.Session().HasUsedHalfTime())
}

func TestUnknownPlayerDoesNotPublish(t *testing.T) {
	client, channel, _ := newTestClient(t)
	require.NoError(t, client.Join())
	require.NoError(t, client.Start())
	before := len(channel.sentEnvelopes())

	err := client.AddGoal("ghost", "Ghost", match.TeamOne)
	require.ErrorIs(t, err, match.ErrPlayerNotFound)
	assert.Len(t, channel.sentEnvelopes(), before)
}

func TestApplyGoalFrame(t *testing.T) {
	client, channel, metricsSvc := newTestClient(t)
	require.NoError(t, client.Join())

	payload, _ := json.Marshal(MatchMessage{
		MatchID:  "match-1",
		TeamID:   "team-away",
		PlayerID: "p3", PlayerName: "Carol",
		Minute: 14,
	})
	channel.deliver(hub.Envelope{Type: string(match.AnnounceGoal), Room: hub.MatchRoom("match-1"), Payload: payload})

	_, team2 := client.Session().Score()
	assert.Equal(t, 1, team2)
	stat, _ := client.Session().Stat("p3")
	assert.Equal(t, 1, stat.Goals)
	events := client.Session().Events()
	require.Len(t, events, 1)
	assert.Equal(t, 14, events[0].Minute, "sender's minute is preserved")
	assert.Equal(t, 1, metricsSvc.MessagesApplied())
}

func TestApplyDropsUnknownTeam(t *testing.T) {
	client, channel, metricsSvc := newTestClient(t)
	require.NoError(t, client.Join())

	payload, _ := json.Marshal(MatchMessage{MatchID: "match-1", TeamID: "team-nowhere", PlayerID: "p1", Minute: 3})
	channel.deliver(hub.Envelope{Type: string(match.AnnounceGoal), Room: hub.MatchRoom("match-1"), Payload: payload})

	team1, team2 := client.Session().Score()
	assert.Equal(t, 0, team1)
	assert.Equal(t, 0, team2)
	assert.Empty(t, client.Session().Events())
	assert.Equal(t, 1, metricsSvc.MessagesDropped())
	assert.Equal(t, 0, metricsSvc.MessagesApplied())
}

func TestApplyDropsMalformedFrame(t *testing.T) {
	client, channel, metricsSvc := newTestClient(t)
	require.NoError(t, client.Join())

	channel.deliver(hub.Envelope{Type: string(match.AnnounceGoal), Room: hub.MatchRoom("match-1"), Payload: []byte("{")})
	assert.Equal(t, 1, metricsSvc.MessagesDropped())
}

func TestApplyTeamGoalConverges(t *testing.T) {
	acting, actingChannel, _ := newTestClient(t)
	watching, watchingChannel, _ := newTestClient(t)
	require.NoError(t, acting.Join())
	require.NoError(t, watching.Join())
	require.NoError(t, acting.Start())

	require.NoError(t, acting.AddTeamGoal(match.TeamOne, "Home FC"))

	// Relay every acting frame into the watching client.
	for _, env := range actingChannel.sentEnvelopes() {
		watchingChannel.deliver(env)
	}

	a1, a2 := acting.Session().Score()
	w1, w2 := watching.Session().Score()
	assert.Equal(t, a1, w1)
	assert.Equal(t, a2, w2)

	// The coupled goal-allowed reaches the watching keeper too.
	actingKeeper, _ := acting.Session().Stat("p4")
	watchingKeeper, _ := watching.Session().Stat("p4")
	assert.Equal(t, actingKeeper.GoalsAllowed, watchingKeeper.GoalsAllowed)
	assert.Len(t, watching.Session().Events(), len(acting.Session().Events()))
}
