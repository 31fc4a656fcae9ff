// Package events publishes dispute lifecycle events after commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	DisputeCreated            = "dispute.created"
	DisputeUpdated            = "dispute.updated"
	DisputeArbitratorAssigned = "dispute.arbitrator_assigned"
	DisputeReviewStarted      = "dispute.review_started"
	DisputeResolved           = "dispute.resolved"
	DisputeRejected           = "dispute.rejected"
	DisputeCanceled           = "dispute.canceled"
)

// Envelope is the message body written for every event.
type Envelope struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	DisputeID  string      `json:"dispute_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType, disputeID string, data interface{}) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

// Publish keys messages by dispute id so one dispute's events stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, disputeID string, data interface{}) error {
	payload, err := Encode(eventType, disputeID, data)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(disputeID),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Encode builds the JSON envelope for an event.
func Encode(eventType, disputeID string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		DisputeID:  disputeID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return payload, nil
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

func (NoopPublisher) Close() error { return nil }
