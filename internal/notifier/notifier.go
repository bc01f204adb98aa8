package notifier

// MatchSummary carries the details a notification needs about a match.
// It is deliberately decoupled from the live session type so the
// notifier never holds a reference to mutable match state.
type MatchSummary struct {
	MatchID    string
	Team1Name  string
	Team2Name  string
	Team1Goals int
	Team2Goals int
	Minute     int
}

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For matches going live
	SendMatchStartedNotification(summary *MatchSummary, dryRun bool) error
	// For completed matches
	SendFinalScoreNotification(summary *MatchSummary, dryRun bool) error
	// For broadcast sessions going live
	SendStreamLiveNotification(summary *MatchSummary, sessionID string, dryRun bool) error
}
