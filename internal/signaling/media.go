package signaling

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pion/webrtc/v4"
)

// SampleSource is a MediaSource serving locally built sample tracks, fed by
// whatever capture pipeline the embedding process runs. It enforces the
// exclusive-ownership rule: acquiring a new capture first releases any
// existing one.
type SampleSource struct {
	mu     sync.Mutex
	tracks []webrtc.TrackLocal
	held   bool
}

var _ MediaSource = (*SampleSource)(nil)

// NewSampleSource creates a source producing one VP8 video and one Opus
// audio track per acquisition.
func NewSampleSource() *SampleSource {
	return &SampleSource{}
}

// Acquire opens a fresh capture.
func (s *SampleSource) Acquire(ctx context.Context) ([]webrtc.TrackLocal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.held {
		log.Debug("releasing previous capture before acquiring")
		s.tracks = nil
		s.held = false
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", "clubsync-live",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create video track: %w", err)
	}
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "clubsync-live",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio track: %w", err)
	}

	s.tracks = []webrtc.TrackLocal{video, audio}
	s.held = true
	return s.tracks, nil
}

// Release drops the capture. Safe to call repeatedly.
func (s *SampleSource) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held {
		return
	}
	s.tracks = nil
	s.held = false
	log.Debug("capture released")
}

// Held reports whether a capture is currently open.
func (s *SampleSource) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}
