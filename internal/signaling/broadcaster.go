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

// Broadcaster owns the sending end of one stream session: the local capture
// and exactly one PeerLink per concurrently connected viewer. Negotiation is
// per-viewer unicast; there is no shared media server fan-out.
type Broadcaster struct {
	channel    Channel
	clientID   string
	media      MediaSource
	metrics    metrics.Metrics
	iceServers []webrtc.ICEServer
	timeout    time.Duration

	mu      sync.Mutex
	session *StreamSession
	tracks  []webrtc.TrackLocal
	links   map[string]*PeerLink
	sub     *hub.Subscription
}

// BroadcasterOption tweaks construction.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterTimeout bounds the per-viewer wait for Connected.
func WithBroadcasterTimeout(d time.Duration) BroadcasterOption {
	return func(b *Broadcaster) { b.timeout = d }
}

// WithBroadcasterICEServers overrides the STUN configuration.
func WithBroadcasterICEServers(servers []webrtc.ICEServer) BroadcasterOption {
	return func(b *Broadcaster) { b.iceServers = servers }
}

// NewBroadcaster creates a broadcaster bound to one relay connection.
func NewBroadcaster(channel Channel, clientID string, media MediaSource, metricsSvc metrics.Metrics, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		channel:    channel,
		clientID:   clientID,
		media:      media,
		metrics:    metricsSvc,
		iceServers: DefaultICEServers(),
		timeout:    10 * time.Second,
		links:      make(map[string]*PeerLink),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start acquires the local capture, asks the relay for a server-assigned
// session id and subscribes to the new signaling channel. Media is acquired
// before any negotiation begins.
func (b *Broadcaster) Start(ctx context.Context, matchID string) (*StreamSession, error) {
	b.mu.Lock()
	if b.session != nil {
		session := b.session
		b.mu.Unlock()
		return session, nil
	}
	b.mu.Unlock()

	tracks, err := b.media.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire capture: %w", err)
	}

	started := make(chan hub.StreamStartedPayload, 1)
	wildcard := b.channel.Subscribe("", func(env hub.Envelope) {
		if env.Type != hub.MsgStreamingStarted {
			return
		}
		var payload hub.StreamStartedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		select {
		case started <- payload:
		default:
		}
	})
	defer b.channel.Unsubscribe(wildcard)

	req, _ := json.Marshal(hub.StreamStartRequest{MatchID: matchID})
	if err := b.channel.Send(hub.Envelope{Type: hub.MsgStreamingStart, From: b.clientID, Payload: req}); err != nil {
		b.media.Release()
		return nil, fmt.Errorf("failed to request stream session: %w", err)
	}

	var allocated hub.StreamStartedPayload
	select {
	case allocated = <-started:
	case <-ctx.Done():
		b.media.Release()
		return nil, fmt.Errorf("stream session allocation: %w", ctx.Err())
	case <-time.After(b.timeout):
		b.media.Release()
		return nil, fmt.Errorf("stream session allocation timed out after %s", b.timeout)
	}

	session := &StreamSession{
		ID:            allocated.SessionID,
		MatchID:       matchID,
		BroadcasterID: b.clientID,
		IsActive:      true,
	}

	b.mu.Lock()
	b.session = session
	b.tracks = tracks
	b.sub = b.channel.Subscribe(hub.StreamRoom(session.ID), b.handle)
	b.mu.Unlock()
	log.Info("broadcast started", "sessionID", session.ID, "matchID", matchID)
	return session, nil
}

// Session returns the active stream session, or nil.
func (b *Broadcaster) Session() *StreamSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Link returns the peer link for a viewer, when one exists.
func (b *Broadcaster) Link(viewerID string) (*PeerLink, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	link, ok := b.links[viewerID]
	return link, ok
}

func (b *Broadcaster) handle(env hub.Envelope) {
	switch env.Type {
	case hub.MsgViewerJoined:
		var payload hub.ViewerPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			log.Warn("malformed viewer_joined payload", "error", err)
			return
		}
		if err := b.OnViewerJoined(payload.ViewerID); err != nil {
			log.Error("failed to offer to viewer", "viewerID", payload.ViewerID, "error", err)
			b.metrics.IncSignalingFailures()
		}
	case hub.MsgViewerLeft:
		var payload hub.ViewerPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		b.closeLink(payload.ViewerID)
	case MsgAnswer:
		var payload DescriptionPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			log.Warn("malformed answer payload", "error", err)
			return
		}
		if err := b.HandleAnswer(env.From, payload); err != nil {
			log.Error("failed to apply answer", "viewerID", env.From, "error", err)
			b.metrics.IncSignalingFailures()
		}
	case MsgCandidate:
		var payload CandidatePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			log.Warn("malformed candidate payload", "error", err)
			return
		}
		if err := b.HandleCandidate(env.From, payload); err != nil {
			log.Warn("failed to apply candidate", "viewerID", env.From, "error", err)
		}
	case hub.MsgStreamingStopped:
		b.Stop()
	}
}

// OnViewerJoined creates the viewer's dedicated peer link and sends the
// offer. The registry is keyed by viewer id, so every later answer and
// candidate routes to exactly one link without receiver-side self-filtering.
func (b *Broadcaster) OnViewerJoined(viewerID string) error {
	b.mu.Lock()
	session := b.session
	tracks := b.tracks
	b.mu.Unlock()
	if session == nil {
		return ErrNotBroadcasting
	}

	room := hub.StreamRoom(session.ID)
	var link *PeerLink
	pc, err := newPeerConnection(b.iceServers,
		func(state webrtc.PeerConnectionState) {
			link.applyTransportState(state)
			if state == webrtc.PeerConnectionStateConnected {
				b.metrics.IncPeersConnected()
			}
		},
		func(candidate webrtc.ICECandidateInit) {
			payload, _ := json.Marshal(CandidatePayload{Candidate: candidate, SessionID: session.ID, MatchID: session.MatchID})
			if err := b.channel.Send(hub.Envelope{Type: MsgCandidate, Room: room, From: b.clientID, To: viewerID, Payload: payload}); err != nil {
				log.Warn("failed to send candidate", "viewerID", viewerID, "error", err)
			}
		})
	if err != nil {
		return err
	}
	link = newPeerLink(session.ID, viewerID, pc)

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			link.Close()
			return fmt.Errorf("failed to add track: %w", err)
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		link.Close()
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		link.Close()
		return fmt.Errorf("failed to set local description: %w", err)
	}

	b.mu.Lock()
	if existing, ok := b.links[viewerID]; ok {
		existing.Close()
	}
	b.links[viewerID] = link
	b.mu.Unlock()

	payload, _ := json.Marshal(DescriptionPayload{SDP: offer.SDP, SessionID: session.ID, MatchID: session.MatchID})
	if err := b.channel.Send(hub.Envelope{Type: MsgOffer, Room: room, From: b.clientID, To: viewerID, Payload: payload}); err != nil {
		link.Close()
		return fmt.Errorf("failed to send offer: %w", err)
	}
	link.setState(LinkOfferSent)
	log.Info("offer sent", "sessionID", session.ID, "viewerID", viewerID)

	go b.watchLink(link)
	return nil
}

// watchLink enforces the bounded connection wait: a link without a Connected
// transition inside the window is failed and closed rather than left to
// complete asynchronously.
func (b *Broadcaster) watchLink(link *PeerLink) {
	deadline := time.NewTimer(b.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline.C:
			if link.State() != LinkConnected {
				log.Warn("peer link timed out before connecting", "sessionID", link.SessionID, "viewerID", link.ViewerID)
				b.metrics.IncSignalingFailures()
				b.closeLink(link.ViewerID)
			}
			return
		case <-ticker.C:
			switch link.State() {
			case LinkConnected, LinkClosed, LinkFailed:
				return
			}
		}
	}
}

// HandleAnswer applies a viewer's answer. Answer application requires a
// previously sent offer; anything else is rejected locally.
func (b *Broadcaster) HandleAnswer(viewerID string, payload DescriptionPayload) error {
	b.mu.Lock()
	link, ok := b.links[viewerID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: viewer %q", ErrLinkNotFound, viewerID)
	}
	if state := link.State(); state != LinkOfferSent {
		return fmt.Errorf("%w: link state %s", ErrUnexpectedAnswer, state)
	}
	if err := link.setRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: payload.SDP}); err != nil {
		return err
	}
	link.setState(LinkAnswerReceived)
	log.Info("answer received", "sessionID", link.SessionID, "viewerID", viewerID)
	return nil
}

// HandleCandidate routes a viewer's candidate to its link.
func (b *Broadcaster) HandleCandidate(viewerID string, payload CandidatePayload) error {
	b.mu.Lock()
	link, ok := b.links[viewerID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: viewer %q", ErrLinkNotFound, viewerID)
	}
	return link.addCandidate(payload.Candidate)
}

func (b *Broadcaster) closeLink(viewerID string) {
	b.mu.Lock()
	link, ok := b.links[viewerID]
	delete(b.links, viewerID)
	b.mu.Unlock()
	if ok {
		link.Close()
		log.Info("peer link closed", "sessionID", link.SessionID, "viewerID", viewerID)
	}
}

// Stop tears the whole session down: every peer link, the capture device and
// the channel membership. Double invocation is a no-op.
func (b *Broadcaster) Stop() {
	b.stop(hub.MsgStreamingStop, "")
}

// StopForMatch is the teardown tied to match end.
func (b *Broadcaster) StopForMatch(matchID string) {
	b.stop(hub.MsgStreamingStopByMatch, matchID)
}

func (b *Broadcaster) stop(trigger, matchID string) {
	b.mu.Lock()
	session := b.session
	if session == nil {
		b.mu.Unlock()
		return
	}
	b.session = nil
	links := b.links
	b.links = make(map[string]*PeerLink)
	sub := b.sub
	b.sub = nil
	b.tracks = nil
	b.mu.Unlock()

	for _, link := range links {
		link.Close()
	}
	b.media.Release()
	session.IsActive = false

	payload, _ := json.Marshal(hub.StopPayload{SessionID: session.ID, MatchID: matchID})
	if err := b.channel.Send(hub.Envelope{Type: trigger, Room: hub.StreamRoom(session.ID), From: b.clientID, Payload: payload}); err != nil {
		log.Warn("failed to announce stream stop", "sessionID", session.ID, "error", err)
	}
	b.channel.Unsubscribe(sub)
	if err := b.channel.Leave(hub.StreamRoom(session.ID)); err != nil {
		log.Debug("failed to leave stream room", "sessionID", session.ID, "error", err)
	}
	log.Info("broadcast stopped", "sessionID", session.ID, "trigger", trigger)
}
