package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topic returns the league event topic for a prefix.
func Topic(prefix string) string {
	return prefix + ".league-events"
}

// KafkaPublisher writes events to a single topic keyed by league ID, so every
// event of one league lands on the same partition in commit order.
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

// NewKafkaPublisher builds a publisher over a key-hashing writer.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		Topic: topic,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events.Publish %s: %w", e.Type, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

func encode(e Event) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("events.encode %s: %w", e.Type, err)
	}
	return kafka.Message{
		Key:   []byte(e.LeagueID.String()),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}, nil
}
