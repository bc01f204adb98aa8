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

func NewServer(clubStore club.ClubStore, liveStore livestore.LiveStore, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, notifier notifier.Notifier, processor *processor.Processor, matchHub *hub.Hub, pubsub pubsub.PubSubClient, inngestClient inngest.InngestClient) *Server {
	server := &Server{
		ClubStore:      clubStore,
		LiveStore:      liveStore,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Notifier:       notifier,
		Processor:      processor,
		Hub:            matchHub,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
		InngestClient:  inngestClient,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/clear", Chain(s.ClearStoreHandler(), paramsMiddleware))
	s.Router.Handle("/ws", s.Hub.Handler())
	s.Router.Handle("/members", Chain(s.ListMembersHandler(), paramsMiddleware))
	s.Router.Handle("/roster", Chain(s.TeamRosterHandler(), paramsMiddleware))
	s.Router.Handle("/matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("/match", Chain(s.GetMatchHandler(), paramsMiddleware))
	s.Router.Handle("/events", Chain(s.ListMatchEventsHandler(), paramsMiddleware))
	s.Router.Handle("/stats", Chain(s.ListMatchStatsHandler(), paramsMiddleware))
	s.Router.Handle("/live/match", Chain(s.CreateLiveMatchHandler(), paramsMiddleware))
	s.Router.Handle("/live/stats", Chain(s.UpdatePlayerStatsHandler(), paramsMiddleware))
	s.Router.Handle("/live/score", Chain(s.UpdateScoreHandler(), paramsMiddleware))
	s.Router.Handle("/live/event", Chain(s.CreateMatchEventHandler(), paramsMiddleware))
	s.Router.Handle("/live/end", Chain(s.EndMatchHandler(), paramsMiddleware))
	s.Router.Handle("/live/start", Chain(s.StartMatchHandler(), paramsMiddleware))
	s.Router.Handle("/live/archive", Chain(s.ArchiveMatchHandler(), paramsMiddleware))
	s.Router.Handle("/signaling/config", Chain(s.SignalingConfigHandler(), paramsMiddleware))
	s.Router.Handle("/pubsub/match-archived", Chain(s.MatchArchivedPushHandler(), paramsMiddleware))
	s.Router.Handle("/api/inngest", s.InngestClient.Serve())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
