package processor

import (
	"clubsync/internal/inngest"
	"clubsync/internal/metrics"
	"clubsync/internal/pubsub"
)

// Processor handles the business logic around match lifecycle events:
// persisting finished matches and fanning out notifications.
type Processor struct {
	store    Store
	pubsub   pubsub.PubSubClient
	notifier Notifier
	metrics  metrics.Metrics
	inngest  inngest.InngestClient
}
