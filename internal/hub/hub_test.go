package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) (*Hub, string, func()) {
	t.Helper()
	h := New()
	srv := httptest.NewServer(h.Handler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return h, wsURL, srv.Close
}

func dialTestClient(t *testing.T, wsURL, clientID string) *Conn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := Dial(ctx, wsURL, clientID)
	require.NoError(t, err)
	go conn.Run(ctx)
	t.Cleanup(func() {
		cancel()
		conn.Close()
	})
	return conn
}

func waitFor(t *testing.T, ch <-chan Envelope, what string) Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return Envelope{}
	}
}

func TestRelayExcludesSender(t *testing.T) {
	_, wsURL, teardown := newTestRelay(t)
	defer teardown()

	sender := dialTestClient(t, wsURL, "sender")
	receiver := dialTestClient(t, wsURL, "receiver")

	room := MatchRoom("match-1")
	senderFrames := make(chan Envelope, 8)
	receiverFrames := make(chan Envelope, 8)
	sender.Subscribe(room, func(env Envelope) { senderFrames <- env })
	receiver.Subscribe(room, func(env Envelope) { receiverFrames <- env })

	require.NoError(t, sender.Join(room))
	require.NoError(t, receiver.Join(room))
	// Give the relay a beat to register both memberships.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, sender.Send(Envelope{Type: "match:goal", Room: room, Payload: json.RawMessage(`{"minute":1}`)}))

	env := waitFor(t, receiverFrames, "relayed frame")
	assert.Equal(t, "match:goal", env.Type)
	assert.Equal(t, "sender", env.From)

	select {
	case env := <-senderFrames:
		t.Fatalf("sender received its own frame: %+v", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAddressedFrameReachesOneMember(t *testing.T) {
	_, wsURL, teardown := newTestRelay(t)
	defer teardown()

	sender := dialTestClient(t, wsURL, "sender")
	target := dialTestClient(t, wsURL, "target")
	bystander := dialTestClient(t, wsURL, "bystander")

	room := MatchRoom("match-2")
	targetFrames := make(chan Envelope, 8)
	bystanderFrames := make(chan Envelope, 8)
	target.Subscribe(room, func(env Envelope) { targetFrames <- env })
	bystander.Subscribe(room, func(env Envelope) { bystanderFrames <- env })

	require.NoError(t, sender.Join(room))
	require.NoError(t, target.Join(room))
	require.NoError(t, bystander.Join(room))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, sender.Send(Envelope{Type: "webrtc:offer", Room: room, To: "target", Payload: json.RawMessage(`{}`)}))

	env := waitFor(t, targetFrames, "addressed frame")
	assert.Equal(t, "webrtc:offer", env.Type)

	select {
	case env := <-bystanderFrames:
		t.Fatalf("bystander received an addressed frame: %+v", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStreamingStartAssignsSession(t *testing.T) {
	_, wsURL, teardown := newTestRelay(t)
	defer teardown()

	broadcaster := dialTestClient(t, wsURL, "broadcaster")
	started := make(chan Envelope, 1)
	// The broadcaster cannot know the stream room id before the reply, so it
	// listens on the wildcard subscription.
	broadcaster.Subscribe("", func(env Envelope) {
		if env.Type == MsgStreamingStarted {
			started <- env
		}
	})

	payload, _ := json.Marshal(StreamStartRequest{MatchID: "match-3"})
	require.NoError(t, broadcaster.Send(Envelope{Type: MsgStreamingStart, Payload: payload}))

	env := waitFor(t, started, "streaming:started")
	var reply StreamStartedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &reply))
	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, "match-3", reply.MatchID)
}

func TestViewerLifecycleNotifiesBroadcaster(t *testing.T) {
	_, wsURL, teardown := newTestRelay(t)
	defer teardown()

	broadcaster := dialTestClient(t, wsURL, "broadcaster")
	started := make(chan Envelope, 1)
	viewerEvents := make(chan Envelope, 8)
	broadcaster.Subscribe("", func(env Envelope) {
		switch env.Type {
		case MsgStreamingStarted:
			started <- env
		case MsgViewerJoined, MsgViewerLeft:
			viewerEvents <- env
		}
	})

	payload, _ := json.Marshal(StreamStartRequest{MatchID: "match-4"})
	require.NoError(t, broadcaster.Send(Envelope{Type: MsgStreamingStart, Payload: payload}))

	var reply StreamStartedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, started, "streaming:started").Payload, &reply))
	room := StreamRoom(reply.SessionID)

	viewer := dialTestClient(t, wsURL, "viewer")
	require.NoError(t, viewer.Join(room))

	env := waitFor(t, viewerEvents, "viewer_joined")
	assert.Equal(t, MsgViewerJoined, env.Type)
	var joined ViewerPayload
	require.NoError(t, json.Unmarshal(env.Payload, &joined))
	assert.Equal(t, "viewer", joined.ViewerID)

	require.NoError(t, viewer.Leave(room))
	env = waitFor(t, viewerEvents, "viewer_left")
	assert.Equal(t, MsgViewerLeft, env.Type)
}

func TestStopStreamNotifiesRoom(t *testing.T) {
	_, wsURL, teardown := newTestRelay(t)
	defer teardown()

	broadcaster := dialTestClient(t, wsURL, "broadcaster")
	started := make(chan Envelope, 1)
	broadcaster.Subscribe("", func(env Envelope) {
		if env.Type == MsgStreamingStarted {
			started <- env
		}
	})
	payload, _ := json.Marshal(StreamStartRequest{MatchID: "match-5"})
	require.NoError(t, broadcaster.Send(Envelope{Type: MsgStreamingStart, Payload: payload}))

	var reply StreamStartedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, started, "streaming:started").Payload, &reply))
	room := StreamRoom(reply.SessionID)

	viewer := dialTestClient(t, wsURL, "viewer")
	stopped := make(chan Envelope, 1)
	viewer.Subscribe(room, func(env Envelope) {
		if env.Type == MsgStreamingStopped {
			stopped <- env
		}
	})
	require.NoError(t, viewer.Join(room))
	time.Sleep(100 * time.Millisecond)

	stopPayload, _ := json.Marshal(StopPayload{SessionID: reply.SessionID, MatchID: "match-5"})
	require.NoError(t, broadcaster.Send(Envelope{Type: MsgStreamingStop, Room: room, Payload: stopPayload}))

	env := waitFor(t, stopped, "streaming:stopped")
	var stop StopPayload
	require.NoError(t, json.Unmarshal(env.Payload, &stop))
	assert.Equal(t, reply.SessionID, stop.SessionID)
}

type recordingListener struct {
	started chan [2]string
	stopped chan [2]string
}

func (l *recordingListener) StreamStarted(matchID, sessionID string) {
	l.started <- [2]string{matchID, sessionID}
}

func (l *recordingListener) StreamStopped(matchID, sessionID string) {
	l.stopped <- [2]string{matchID, sessionID}
}

func TestStreamListenerSeesLifecycle(t *testing.T) {
	h, wsURL, teardown := newTestRelay(t)
	defer teardown()

	listener := &recordingListener{
		started: make(chan [2]string, 1),
		stopped: make(chan [2]string, 1),
	}
	h.SetStreamListener(listener)

	broadcaster := dialTestClient(t, wsURL, "broadcaster")
	started := make(chan Envelope, 1)
	broadcaster.Subscribe("", func(env Envelope) {
		if env.Type == MsgStreamingStarted {
			started <- env
		}
	})
	payload, _ := json.Marshal(StreamStartRequest{MatchID: "match-6"})
	require.NoError(t, broadcaster.Send(Envelope{Type: MsgStreamingStart, Payload: payload}))

	var reply StreamStartedPayload
	require.NoError(t, json.Unmarshal(waitFor(t, started, "streaming:started").Payload, &reply))

	select {
	case ev := <-listener.started:
		assert.Equal(t, "match-6", ev[0])
		assert.Equal(t, reply.SessionID, ev[1])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the start callback")
	}

	// A stop without a match id in the payload still reports the match the
	// session was started for.
	stopPayload, _ := json.Marshal(StopPayload{SessionID: reply.SessionID})
	require.NoError(t, broadcaster.Send(Envelope{Type: MsgStreamingStop, Room: StreamRoom(reply.SessionID), Payload: stopPayload}))

	select {
	case ev := <-listener.stopped:
		assert.Equal(t, "match-6", ev[0])
		assert.Equal(t, reply.SessionID, ev[1])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the stop callback")
	}
}
