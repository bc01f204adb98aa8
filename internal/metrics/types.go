package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	MessagesPublished  prometheus.Counter
	MessagesApplied    prometheus.Counter
	MessagesDropped    prometheus.Counter
	PeersConnected     prometheus.Counter
	SignalingFailures  prometheus.Counter
	ArchiveDuration    prometheus.Histogram
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
