package http

import (
	"net/http"

	"clubsync/internal/club"
	"clubsync/internal/config"
	"clubsync/internal/hub"
	"clubsync/internal/inngest"
	"clubsync/internal/livestore"
	"clubsync/internal/metrics"
	"clubsync/internal/notifier"
	"clubsync/internal/processor"
	"clubsync/internal/pubsub"
)

type Server struct {
	ClubStore      club.ClubStore
	LiveStore      livestore.LiveStore
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Notifier       notifier.Notifier
	Processor      *processor.Processor
	Hub            *hub.Hub
	InngestClient  inngest.InngestClient
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}
