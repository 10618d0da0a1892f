package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/feed"
	"github.com/prohmpiriya/sport-slots-booker/internal/metrics"
	"github.com/prohmpiriya/sport-slots-booker/pkg/kafka"
)

// EventPublisher defines the interface for publishing slot availability events
type EventPublisher interface {
	// PublishSlotEvent hands an event to the feed transport
	PublishSlotEvent(ctx context.Context, event *domain.SlotEvent) error

	// Close closes the event publisher
	Close() error
}

// MessageProducer is the subset of kafka.Producer the publisher needs
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaEventPublisher implements EventPublisher using Kafka. Every instance
// relays the topic into its own feed hub, so subscribers see bookings made
// on any instance.
type KafkaEventPublisher struct {
	producer    MessageProducer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "slots-booker-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaEventPublisherWithProducer(producer, cfg.Topic, cfg.ServiceName), nil
}

// NewKafkaEventPublisherWithProducer builds a publisher on an existing producer
func NewKafkaEventPublisherWithProducer(producer MessageProducer, topic, serviceName string) *KafkaEventPublisher {
	if topic == "" {
		topic = "slot-events"
	}
	if serviceName == "" {
		serviceName = "sport-slots-booker"
	}
	return &KafkaEventPublisher{producer: producer, topic: topic, serviceName: serviceName}
}

// PublishSlotEvent publishes the event keyed by venue and sport, so one
// partition carries a given court's events in order
func (p *KafkaEventPublisher) PublishSlotEvent(ctx context.Context, event *domain.SlotEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Key()),
		Value: value,
		Headers: map[string]string{
			"event_type":   string(event.Type),
			"event_id":     event.ID,
			"source":       p.serviceName,
			"content_type": "application/json",
		},
		Timestamp: event.OccurredAt,
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	metrics.RecordFeedPublished(ctx, string(event.Type))
	return nil
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// LocalEventPublisher delivers straight into the in-process hub. Used when
// Kafka is not configured; subscribers on other instances see nothing.
type LocalEventPublisher struct {
	hub *feed.Hub
}

// NewLocalEventPublisher creates a publisher bound to hub
func NewLocalEventPublisher(hub *feed.Hub) *LocalEventPublisher {
	return &LocalEventPublisher{hub: hub}
}

// PublishSlotEvent delivers the event to local subscribers
func (p *LocalEventPublisher) PublishSlotEvent(ctx context.Context, event *domain.SlotEvent) error {
	p.hub.Publish(*event)
	metrics.RecordFeedPublished(ctx, string(event.Type))
	return nil
}

// Close is a no-op; the hub is owned by the container
func (p *LocalEventPublisher) Close() error {
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishSlotEvent is a no-op
func (p *NoOpEventPublisher) PublishSlotEvent(ctx context.Context, event *domain.SlotEvent) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
