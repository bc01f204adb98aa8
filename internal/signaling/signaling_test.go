package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubsync/internal/hub"
	"clubsync/internal/metrics"
)

// fakeChannel is an in-process Channel. It answers streaming:start itself,
// playing the relay's role of allocating the session id.
type fakeChannel struct {
	mu        sync.Mutex
	sessionID string
	joined    []string
	left      []string
	sent      []hub.Envelope
	handlers  map[*hub.Subscription]hub.Handler
}

func newFakeChannel(sessionID string) *fakeChannel {
	return &fakeChannel{
		sessionID: sessionID,
		handlers:  make(map[*hub.Subscription]hub.Handler),
	}
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
	f.sent = append(f.sent, env)
	f.mu.Unlock()

	if env.Type == hub.MsgStreamingStart {
		var req hub.StreamStartRequest
		_ = json.Unmarshal(env.Payload, &req)
		payload, _ := json.Marshal(hub.StreamStartedPayload{SessionID: f.sessionID, MatchID: req.MatchID})
		f.deliver(hub.Envelope{
			Type:    hub.MsgStreamingStarted,
			Room:    hub.StreamRoom(f.sessionID),
			Payload: payload,
		})
	}
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

func (f *fakeChannel) sentOfType(frameType string) []hub.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []hub.Envelope
	for _, env := range f.sent {
		if env.Type == frameType {
			out = append(out, env)
		}
	}
	return out
}

func startedBroadcaster(t *testing.T) (*Broadcaster, *fakeChannel, *SampleSource, *metrics.Mock) {
	t.Helper()
	channel := newFakeChannel("session-1")
	media := NewSampleSource()
	metricsSvc := metrics.NewMock()
	b := NewBroadcaster(channel, "broadcaster-1", media, metricsSvc, WithBroadcasterTimeout(2*time.Second))

	session, err := b.Start(context.Background(), "match-1")
	require.NoError(t, err)
	require.Equal(t, "session-1", session.ID)
	return b, channel, media, metricsSvc
}

func TestBroadcasterStart(t *testing.T) {
	b, _, media, _ := startedBroadcaster(t)

	session := b.Session()
	require.NotNil(t, session)
	assert.Equal(t, "match-1", session.MatchID)
	assert.Equal(t, "broadcaster-1", session.BroadcasterID)
	assert.True(t, session.IsActive)
	assert.True(t, media.Held(), "capture acquired before negotiation")

	// A second start reuses the live session.
	again, err := b.Start(context.Background(), "match-1")
	require.NoError(t, err)
	assert.Same(t, session, again)
}

func TestBroadcasterStopIsIdempotent(t *testing.T) {
	b, channel, media, _ := startedBroadcaster(t)

	b.Stop()
	assert.Nil(t, b.Session())
	assert.False(t, media.Held(), "capture released on stop")
	assert.Len(t, channel.sentOfType(hub.MsgStreamingStop), 1)

	b.Stop()
	assert.Len(t, channel.sentOfType(hub.MsgStreamingStop), 1, "second stop sends nothing")
}

func TestStopForMatchCarriesMatchID(t *testing.T) {
	b, channel, _, _ := startedBroadcaster(t)

	b.StopForMatch("match-1")
	frames := channel.sentOfType(hub.MsgStreamingStopByMatch)
	require.Len(t, frames, 1)
	var stop hub.StopPayload
	require.NoError(t, json.Unmarshal(frames[0].Payload, &stop))
	assert.Equal(t, "session-1", stop.SessionID)
	assert.Equal(t, "match-1", stop.MatchID)
}

func TestOnViewerJoinedSendsOffer(t *testing.T) {
	b, channel, _, _ := startedBroadcaster(t)

	require.NoError(t, b.OnViewerJoined("viewer-1"))

	offers := channel.sentOfType(MsgOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "viewer-1", offers[0].To, "offer is addressed, not broadcast")

	var desc DescriptionPayload
	require.NoError(t, json.Unmarshal(offers[0].Payload, &desc))
	assert.NotEmpty(t, desc.SDP)
	assert.Equal(t, "session-1", desc.SessionID)

	link, ok := b.Link("viewer-1")
	require.True(t, ok)
	assert.Equal(t, LinkOfferSent, link.State())
}

func TestOnViewerJoinedRequiresSession(t *testing.T) {
	channel := newFakeChannel("session-x")
	b := NewBroadcaster(channel, "broadcaster-1", NewSampleSource(), metrics.NewMock())

	err := b.OnViewerJoined("viewer-1")
	assert.ErrorIs(t, err, ErrNotBroadcasting)
}

func TestHandleAnswerGuards(t *testing.T) {
	b, _, _, _ := startedBroadcaster(t)

	t.Run("unknown viewer", func(t *testing.T) {
		err := b.HandleAnswer("stranger", DescriptionPayload{SDP: "x"})
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("answer without outstanding offer", func(t *testing.T) {
		require.NoError(t, b.OnViewerJoined("viewer-1"))
		link, _ := b.Link("viewer-1")
		link.setState(LinkNew)

		err := b.HandleAnswer("viewer-1", DescriptionPayload{SDP: "x"})
		assert.ErrorIs(t, err, ErrUnexpectedAnswer)
	})
}

// The broadcaster's offer flows into a viewer and the viewer's answer flows
// back, leaving both links in AnswerReceived.
func TestOfferAnswerRoundTrip(t *testing.T) {
	b, broadcasterChannel, _, _ := startedBroadcaster(t)
	require.NoError(t, b.OnViewerJoined("viewer-1"))
	offers := broadcasterChannel.sentOfType(MsgOffer)
	require.Len(t, offers, 1)

	viewerChannel := newFakeChannel("session-1")
	v := NewViewer(viewerChannel, "viewer-1", metrics.NewMock())
	v.sessionID = "session-1"

	var offer DescriptionPayload
	require.NoError(t, json.Unmarshal(offers[0].Payload, &offer))
	require.NoError(t, v.handleOffer("broadcaster-1", offer))

	require.NotNil(t, v.Link())
	assert.Equal(t, LinkAnswerReceived, v.Link().State())

	answers := viewerChannel.sentOfType(MsgAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "broadcaster-1", answers[0].To)

	var answer DescriptionPayload
	require.NoError(t, json.Unmarshal(answers[0].Payload, &answer))
	require.NoError(t, b.HandleAnswer("viewer-1", answer))

	link, _ := b.Link("viewer-1")
	assert.Equal(t, LinkAnswerReceived, link.State())
}

func TestViewerWatchTimeout(t *testing.T) {
	channel := newFakeChannel("session-1")
	metricsSvc := metrics.NewMock()
	v := NewViewer(channel, "viewer-1", metricsSvc, WithViewerTimeout(300*time.Millisecond))

	err := v.Watch(context.Background(), "session-1")
	require.ErrorIs(t, err, ErrNoActiveBroadcaster)
	assert.Equal(t, 1, metricsSvc.SignalingFailures())
	assert.Contains(t, channel.left, hub.StreamRoom("session-1"), "failed watch tears down membership")

	// The viewer is back to not-watching, so a new watch is allowed.
	err = v.Watch(context.Background(), "session-1")
	assert.ErrorIs(t, err, ErrNoActiveBroadcaster)
}

func TestViewerLeaveIsIdempotent(t *testing.T) {
	channel := newFakeChannel("session-1")
	v := NewViewer(channel, "viewer-1", metrics.NewMock())
	v.sessionID = "session-1"

	v.Leave()
	v.Leave()
	assert.Len(t, channel.left, 1)
	assert.Nil(t, v.Link())
	assert.Nil(t, v.RemoteTrack())
}

func TestPeerLinkCandidateBuffering(t *testing.T) {
	pc, err := newPeerConnection(nil, nil, nil)
	require.NoError(t, err)
	link := newPeerLink("session-1", "viewer-1", pc)
	defer link.Close()

	require.NoError(t, link.addCandidate(webrtc.ICECandidateInit{Candidate: "candidate:early"}))
	link.mu.Lock()
	pending := len(link.pending)
	link.mu.Unlock()
	assert.Equal(t, 1, pending, "candidate buffered until the remote description exists")
}

func TestPeerLinkTransportStates(t *testing.T) {
	pc, err := newPeerConnection(nil, nil, nil)
	require.NoError(t, err)
	link := newPeerLink("session-1", "viewer-1", pc)

	link.applyTransportState(webrtc.PeerConnectionStateConnected)
	assert.Equal(t, LinkConnected, link.State())
	link.applyTransportState(webrtc.PeerConnectionStateDisconnected)
	assert.Equal(t, LinkDisconnected, link.State())
	link.applyTransportState(webrtc.PeerConnectionStateFailed)
	assert.Equal(t, LinkFailed, link.State())

	link.Close()
	assert.Equal(t, LinkClosed, link.State())
	link.applyTransportState(webrtc.PeerConnectionStateConnected)
	assert.Equal(t, LinkClosed, link.State(), "closed links stay closed")

	link.Close()
}

func TestSampleSourceExclusiveOwnership(t *testing.T) {
	media := NewSampleSource()

	tracks, err := media.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.True(t, media.Held())

	again, err := media.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, again, 2)

	media.Release()
	assert.False(t, media.Held())
	media.Release()
}

func TestICEServers(t *testing.T) {
	servers := ICEServers([]string{"stun:stun.example.org:3478", "stun:stun2.example.org:3478"})
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, servers[0].URLs)

	assert.Equal(t, DefaultICEServers(), ICEServers(nil), "empty list falls back to the defaults")
}
