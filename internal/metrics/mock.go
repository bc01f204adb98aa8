package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                sync.Mutex
	messagesPublished int
	messagesApplied   int
	messagesDropped   int
	peersConnected    int
	signalingFailures int
	archiveDurations  []float64
	slackNotifSent    int
	slackNotifFailed  int
	startupTime       float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		archiveDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMessagesPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesPublished++
}

func (m *Mock) IncMessagesApplied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesApplied++
}

func (m *Mock) IncMessagesDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesDropped++
}

func (m *Mock) IncPeersConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peersConnected++
}

func (m *Mock) IncSignalingFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalingFailures++
}

func (m *Mock) ObserveArchiveDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archiveDurations = append(m.archiveDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MessagesPublished returns the number of times IncMessagesPublished was called.
func (m *Mock) MessagesPublished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messagesPublished
}

// MessagesApplied returns the number of times IncMessagesApplied was called.
func (m *Mock) MessagesApplied() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messagesApplied
}

// MessagesDropped returns the number of times IncMessagesDropped was called.
func (m *Mock) MessagesDropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messagesDropped
}

// PeersConnected returns the number of times IncPeersConnected was called.
func (m *Mock) PeersConnected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peersConnected
}

// SignalingFailures returns the number of times IncSignalingFailures was called.
func (m *Mock) SignalingFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signalingFailures
}

// ArchiveDurations returns the observed archive durations.
func (m *Mock) ArchiveDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.archiveDurations...)
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
