package infrastructure

import (
	log "github.com/sirupsen/logrus"

	"subbets/domain/events"
)

// NoopEventPublisher discards events. Used when NATS is not configured and
// in tests that do not assert on published events.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a publisher that drops everything.
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish logs and discards the event.
func (p *NoopEventPublisher) Publish(event events.Event) error {
	log.WithField("eventType", event.Type()).Debug("Discarding event (no publisher configured)")
	return nil
}
