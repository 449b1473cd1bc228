package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"subbets/domain/events"
	"subbets/infrastructure/observability"
)

const domainEventStream = "subbets_events"

// EventEnvelope wraps every published event with routing metadata.
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSubjectMapper maps domain events to NATS subjects.
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a subject mapper for the engine's streams.
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject returns the subject for an event. Audit actions get
// their own subject so the audit consumer can subscribe narrowly.
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if event.Type() == events.EventTypeAuditAction {
		return "subbets.audit.action"
	}
	return fmt.Sprintf("subbets.events.%s", event.Type())
}

// GetAllSubjects returns the subject patterns the event stream covers.
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"subbets.events.*", "subbets.audit.*"}
}

// NATSEventPublisher implements the EventPublisher interface using NATS
type NATSEventPublisher struct {
	natsClient    *NATSClient
	subjectMapper *EventSubjectMapper
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(natsClient *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()
	subject := p.subjectMapper.MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "subbets-engine",
		Payload:       payload,
	}

	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.natsClient.Publish(ctx, subject, envelopeData); err != nil {
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	observability.GetMetrics().IncNATSMessagePublished(ctx, string(event.Type()))

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureDomainEventStream ensures the event stream exists with the correct
// subjects. Called once after connecting.
func (p *NATSEventPublisher) EnsureDomainEventStream() error {
	return p.natsClient.ensureStream(domainEventStream, p.subjectMapper.GetAllSubjects())
}
