package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pion/webrtc/v4"

	"clubsync/internal/hub"
	"clubsync/internal/metrics"
)

// TrackHandler receives the broadcaster's remote tracks as they arrive.
type TrackHandler func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// Viewer owns the receiving end of one stream session: exactly one PeerLink
// for the session it is watching.
type Viewer struct {
	channel    Channel
	clientID   string
	metrics    metrics.Metrics
	iceServers []webrtc.ICEServer
	timeout    time.Duration
	onTrack    TrackHandler

	mu        sync.Mutex
	sessionID string
	link      *PeerLink
	sub       *hub.Subscription
	remote    *webrtc.TrackRemote
}

// ViewerOption tweaks construction.
type ViewerOption func(*Viewer)

// WithViewerTimeout bounds the wait for Connected.
func WithViewerTimeout(d time.Duration) ViewerOption {
	return func(v *Viewer) { v.timeout = d }
}

// WithViewerICEServers overrides the STUN configuration.
func WithViewerICEServers(servers []webrtc.ICEServer) ViewerOption {
	return func(v *Viewer) { v.iceServers = servers }
}

// OnTrack registers the remote-track callback.
func OnTrack(h TrackHandler) ViewerOption {
	return func(v *Viewer) { v.onTrack = h }
}

// NewViewer creates a viewer bound to one relay connection.
func NewViewer(channel Channel, clientID string, metricsSvc metrics.Metrics, opts ...ViewerOption) *Viewer {
	v := &Viewer{
		channel:    channel,
		clientID:   clientID,
		metrics:    metricsSvc,
		iceServers: DefaultICEServers(),
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Watch joins a stream session's signaling channel and waits for the peer
// link to connect. If no Connected transition happens inside the bounded
// window the attempt is torn down and ErrNoActiveBroadcaster returned; the
// viewer stays not-watching with no automatic retry.
func (v *Viewer) Watch(ctx context.Context, sessionID string) error {
	v.mu.Lock()
	if v.sessionID != "" {
		v.mu.Unlock()
		return fmt.Errorf("already watching session %s", v.sessionID)
	}
	v.sessionID = sessionID
	v.mu.Unlock()

	room := hub.StreamRoom(sessionID)
	sub := v.channel.Subscribe(room, v.handle)
	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()
	if err := v.channel.Join(room); err != nil {
		v.Leave()
		return fmt.Errorf("failed to join stream channel: %w", err)
	}
	log.Info("watching stream", "sessionID", sessionID)

	deadline := time.NewTimer(v.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			v.Leave()
			return ctx.Err()
		case <-deadline.C:
			v.metrics.IncSignalingFailures()
			v.Leave()
			return ErrNoActiveBroadcaster
		case <-ticker.C:
			v.mu.Lock()
			link := v.link
			v.mu.Unlock()
			if link != nil && link.State() == LinkConnected {
				return nil
			}
		}
	}
}

func (v *Viewer) handle(env hub.Envelope) {
	switch env.Type {
	case MsgOffer:
		var payload DescriptionPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			log.Warn("malformed offer payload", "error", err)
			return
		}
		if err := v.handleOffer(env.From, payload); err != nil {
			log.Error("failed to answer offer", "sessionID", payload.SessionID, "error", err)
			v.metrics.IncSignalingFailures()
		}
	case MsgCandidate:
		var payload CandidatePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		v.mu.Lock()
		link := v.link
		v.mu.Unlock()
		if link == nil {
			log.Debug("candidate before offer dropped", "sessionID", payload.SessionID)
			return
		}
		if err := link.addCandidate(payload.Candidate); err != nil {
			log.Warn("failed to apply candidate", "sessionID", payload.SessionID, "error", err)
		}
	case hub.MsgStreamingStopped:
		log.Info("stream stopped by broadcaster", "sessionID", v.sessionID)
		v.Leave()
	}
}

// handleOffer sets the broadcaster's offer as remote description, creates the
// answer and returns it addressed to the broadcaster only.
func (v *Viewer) handleOffer(broadcasterID string, payload DescriptionPayload) error {
	v.mu.Lock()
	sessionID := v.sessionID
	v.mu.Unlock()
	if sessionID == "" {
		return ErrNotBroadcasting
	}

	var link *PeerLink
	pc, err := newPeerConnection(v.iceServers,
		func(state webrtc.PeerConnectionState) {
			link.applyTransportState(state)
			if state == webrtc.PeerConnectionStateConnected {
				v.metrics.IncPeersConnected()
			}
		},
		func(candidate webrtc.ICECandidateInit) {
			room := hub.StreamRoom(sessionID)
			out, _ := json.Marshal(CandidatePayload{Candidate: candidate, SessionID: sessionID})
			if err := v.channel.Send(hub.Envelope{Type: MsgCandidate, Room: room, From: v.clientID, To: broadcasterID, Payload: out}); err != nil {
				log.Warn("failed to send candidate", "sessionID", sessionID, "error", err)
			}
		})
	if err != nil {
		return err
	}
	link = newPeerLink(sessionID, v.clientID, pc)
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		v.mu.Lock()
		v.remote = track
		v.mu.Unlock()
		log.Info("remote track received", "sessionID", sessionID, "kind", track.Kind().String())
		if v.onTrack != nil {
			v.onTrack(track, receiver)
		}
	})

	if err := link.setRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: payload.SDP}); err != nil {
		link.Close()
		return err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		link.Close()
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		link.Close()
		return fmt.Errorf("failed to set local description: %w", err)
	}

	v.mu.Lock()
	if v.link != nil {
		v.link.Close()
	}
	v.link = link
	v.mu.Unlock()

	out, _ := json.Marshal(DescriptionPayload{SDP: answer.SDP, SessionID: sessionID})
	if err := v.channel.Send(hub.Envelope{Type: MsgAnswer, Room: hub.StreamRoom(sessionID), From: v.clientID, To: broadcasterID, Payload: out}); err != nil {
		link.Close()
		return fmt.Errorf("failed to send answer: %w", err)
	}
	// Link states are named from the broadcaster's perspective, the side
	// that runs the offer/answer exchange. On the viewer side the same state
	// means the answer has been produced and handed to the transport.
	link.setState(LinkAnswerReceived)
	log.Info("answer sent", "sessionID", sessionID)
	return nil
}

// Link returns the viewer's peer link, when one exists.
func (v *Viewer) Link() *PeerLink {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.link
}

// RemoteTrack returns the buffered remote stream reference, nil after
// teardown.
func (v *Viewer) RemoteTrack() *webrtc.TrackRemote {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.remote
}

// Leave tears the watch down: close the link, clear the buffered remote
// stream reference, withdraw from the channel. Safe to call repeatedly, and
// the hook for loss of page visibility as well as explicit leave.
func (v *Viewer) Leave() {
	v.mu.Lock()
	sessionID := v.sessionID
	if sessionID == "" {
		v.mu.Unlock()
		return
	}
	v.sessionID = ""
	link := v.link
	v.link = nil
	v.remote = nil
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	if link != nil {
		link.Close()
	}
	v.channel.Unsubscribe(sub)
	if err := v.channel.Leave(hub.StreamRoom(sessionID)); err != nil {
		log.Debug("failed to leave stream room", "sessionID", sessionID, "error", err)
	}
	log.Info("stopped watching stream", "sessionID", sessionID)
}
