package notifier

import (
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies
	SendMatchStartedNotificationFunc func(summary *MatchSummary, dryRun bool) error
	SendFinalScoreNotificationFunc   func(summary *MatchSummary, dryRun bool) error
	SendStreamLiveNotificationFunc   func(summary *MatchSummary, sessionID string, dryRun bool) error

	// Call records
	SendMatchStartedNotificationCalls []struct{ Summary *MatchSummary }
	SendFinalScoreNotificationCalls   []struct{ Summary *MatchSummary }
	SendStreamLiveNotificationCalls   []struct {
		Summary   *MatchSummary
		SessionID string
	}
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchStartedNotificationCalls = nil
	m.SendFinalScoreNotificationCalls = nil
	m.SendStreamLiveNotificationCalls = nil
}

func (m *Mock) SendMatchStartedNotification(summary *MatchSummary, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchStartedNotificationCalls = append(m.SendMatchStartedNotificationCalls, struct{ Summary *MatchSummary }{summary})
	if m.SendMatchStartedNotificationFunc != nil {
		return m.SendMatchStartedNotificationFunc(summary, dryRun)
	}
	return nil
}

func (m *Mock) SendFinalScoreNotification(summary *MatchSummary, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendFinalScoreNotificationCalls = append(m.SendFinalScoreNotificationCalls, struct{ Summary *MatchSummary }{summary})
	if m.SendFinalScoreNotificationFunc != nil {
		return m.SendFinalScoreNotificationFunc(summary, dryRun)
	}
	return nil
}

func (m *Mock) SendStreamLiveNotification(summary *MatchSummary, sessionID string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendStreamLiveNotificationCalls = append(m.SendStreamLiveNotificationCalls, struct {
		Summary   *MatchSummary
		SessionID string
	}{summary, sessionID})
	if m.SendStreamLiveNotificationFunc != nil {
		return m.SendStreamLiveNotificationFunc(summary, sessionID, dryRun)
	}
	return nil
}
