package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Envelope wraps an event payload for transport over NATS
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSPublisher forwards bus events to NATS subjects so other services can
// consume roster and compliance changes. Publishing is best-effort: a NATS
// failure is logged and never affects the emitting workflow.
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSPublisher connects to the given NATS servers
func NewNATSPublisher(servers, subjectPrefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(servers,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}, nil
}

// Bridge subscribes the publisher to every event type on the bus
func (p *NATSPublisher) Bridge(bus *Bus) {
	for _, eventType := range AllEventTypes {
		bus.Subscribe(eventType, p.handle)
	}
	log.WithField("subjectPrefix", p.subjectPrefix).Info("NATS event bridge attached to bus")
}

// Close drains the NATS connection
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Errorf("Error draining NATS connection: %v", err)
	}
}

func (p *NATSPublisher) handle(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to marshal event payload")
		return
	}

	envelope := Envelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "guildwatch",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to marshal event envelope")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.Type())
	if err := p.conn.Publish(subject, data); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"subject":   subject,
			"error":     err,
		}).Error("Failed to publish event to NATS")
		return
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
}
