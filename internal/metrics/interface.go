package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncMessagesPublished()
	IncMessagesApplied()
	IncMessagesDropped()
	IncPeersConnected()
	IncSignalingFailures()
	ObserveArchiveDuration(duration float64)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}
