package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_match_messages_published_total",
			Help: "The total number of match channel messages published by this client.",
		}),
		MessagesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_match_messages_applied_total",
			Help: "The total number of received match channel messages replayed into local state.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_match_messages_dropped_total",
			Help: "The total number of received match channel messages dropped (unknown team or malformed).",
		}),
		PeersConnected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_stream_peers_connected_total",
			Help: "The total number of peer links that reached the connected state.",
		}),
		SignalingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_stream_signaling_failures_total",
			Help: "The total number of peer links that failed or timed out before connecting.",
		}),
		ArchiveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubsync_match_archive_duration_seconds",
			Help:    "The duration of the end-of-match persistence batch.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clubsync_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.MessagesPublished,
		s.MessagesApplied,
		s.MessagesDropped,
		s.PeersConnected,
		s.SignalingFailures,
		s.ArchiveDuration,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncMessagesPublished() {
	s.MessagesPublished.Inc()
}

func (s *Service) IncMessagesApplied() {
	s.MessagesApplied.Inc()
}

func (s *Service) IncMessagesDropped() {
	s.MessagesDropped.Inc()
}

func (s *Service) IncPeersConnected() {
	s.PeersConnected.Inc()
}

func (s *Service) IncSignalingFailures() {
	s.SignalingFailures.Inc()
}

func (s *Service) ObserveArchiveDuration(duration float64) {
	s.ArchiveDuration.Observe(duration)
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
