// Package kafka publishes alert lifecycle events to a Kafka topic.
// Publication is optional and best effort: alert state is durable in
// the store before any event leaves the process.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// AlertEvent is the wire envelope for one lifecycle transition.
type AlertEvent struct {
	EventType string       `json:"event_type"` // created, updated, resolved, dismissed
	Alert     domain.Alert `json:"alert"`
	EmittedAt time.Time    `json:"emitted_at"`
}

// Publisher produces alert events to a Kafka topic. It implements
// alert.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the alert event topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishAlertEvent serializes and publishes one lifecycle event.
func (p *Publisher) PublishAlertEvent(ctx context.Context, eventType string, a domain.Alert) error {
	msg, err := serializeToMessage(AlertEvent{
		EventType: eventType,
		Alert:     a,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AlertEvent into a Kafka message keyed
// by alert ID, so all events for one alert land on one partition in
// order.
func serializeToMessage(event AlertEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Alert.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "location_id", Value: []byte(event.Alert.LocationID)},
			{Key: "emitted_at", Value: []byte(event.EmittedAt.Format(time.RFC3339))},
		},
	}, nil
}
