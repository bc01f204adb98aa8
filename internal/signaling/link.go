package signaling

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pion/webrtc/v4"
)

// PeerLink is one negotiated media connection between the broadcaster and one
// viewer, keyed by (sessionID, viewerID). Candidates arriving before the
// remote description exists are buffered and applied once it is set.
type PeerLink struct {
	SessionID string
	ViewerID  string

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	state     LinkState
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	closed    bool
}

func newPeerLink(sessionID, viewerID string, pc *webrtc.PeerConnection) *PeerLink {
	return &PeerLink{
		SessionID: sessionID,
		ViewerID:  viewerID,
		pc:        pc,
		state:     LinkNew,
	}
}

// State returns the current link state.
func (l *PeerLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *PeerLink) setState(state LinkState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.state = state
}

// applyTransportState maps the transport's own connection-state callback onto
// the link lifecycle. This is the only path into Connected, Disconnected and
// Failed.
func (l *PeerLink) applyTransportState(state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateConnected:
		l.setState(LinkConnected)
	case webrtc.PeerConnectionStateDisconnected:
		l.setState(LinkDisconnected)
	case webrtc.PeerConnectionStateFailed:
		l.setState(LinkFailed)
	case webrtc.PeerConnectionStateClosed:
		l.setState(LinkClosed)
	}
}

// setRemoteDescription applies the remote SDP and flushes any candidates
// buffered before it existed.
func (l *PeerLink) setRemoteDescription(desc webrtc.SessionDescription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	l.remoteSet = true
	for _, candidate := range l.pending {
		if err := l.pc.AddICECandidate(candidate); err != nil {
			log.Warn("failed to apply buffered candidate", "sessionID", l.SessionID, "viewerID", l.ViewerID, "error", err)
		}
	}
	l.pending = nil
	return nil
}

// addCandidate applies a candidate, or buffers it when the remote description
// is not set yet. Applying out of order is the explicit error this guard
// exists for.
func (l *PeerLink) addCandidate(candidate webrtc.ICECandidateInit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	if !l.remoteSet {
		l.pending = append(l.pending, candidate)
		log.Debug("candidate buffered before remote description", "sessionID", l.SessionID, "viewerID", l.ViewerID)
		return nil
	}
	if err := l.pc.AddICECandidate(candidate); err != nil {
		return fmt.Errorf("%w: %v", ErrNoRemoteDescription, err)
	}
	return nil
}

// Close tears the link down. Safe to call any number of times.
func (l *PeerLink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.state = LinkClosed
	l.pending = nil
	if err := l.pc.Close(); err != nil {
		log.Debug("peer connection close", "sessionID", l.SessionID, "viewerID", l.ViewerID, "error", err)
	}
}

// newPeerConnection builds a pion peer connection with the shared handler
// wiring: transport state changes flow into the link, gathered candidates go
// out through send.
func newPeerConnection(iceServers []webrtc.ICEServer, onState func(webrtc.PeerConnectionState), onCandidate func(webrtc.ICECandidateInit)) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("peer connection state", "state", state.String())
		if onState != nil {
			onState(state)
		}
	})
	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil && onCandidate != nil {
			onCandidate(candidate.ToJSON())
		}
	})
	return pc, nil
}
