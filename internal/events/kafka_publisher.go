package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards dispatched events to Kafka, one topic per event type.
type KafkaPublisher struct {
	writer      messageWriter
	topicPrefix string
	logger      *zap.Logger
}

// NewKafkaPublisher builds a publisher writing to brokers.
func NewKafkaPublisher(brokers []string, topicPrefix, clientID string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Transport:              &kafka.Transport{ClientID: clientID},
	}
	return &KafkaPublisher{writer: writer, topicPrefix: topicPrefix, logger: logger}
}

// Topic returns the topic an event type is written to.
func (p *KafkaPublisher) Topic(eventType EventType) string {
	return p.topicPrefix + string(eventType)
}

// Handle writes event to Kafka keyed by appointment id so per-appointment ordering holds.
func (p *KafkaPublisher) Handle(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	msg := kafka.Message{
		Topic: p.Topic(event.Type),
		Key:   []byte(event.AppointmentID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka publish failed",
			zap.String("event_id", event.ID),
			zap.String("topic", msg.Topic),
			zap.Error(err))
		return err
	}
	return nil
}

// Attach subscribes the publisher to every event on dispatcher.
func (p *KafkaPublisher) Attach(dispatcher Dispatcher) {
	dispatcher.SubscribeAll(p.Handle)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
