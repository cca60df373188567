package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/segmentio/kafka-go"
)

// publishTimeout bounds one Publish call including the writer's retries.
const publishTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends events as JSON to a single topic. Messages are keyed
// by vault address, so the hash balancer keeps one vault's events in one
// partition and therefore in order.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
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
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			MaxAttempts:  3,
			WriteTimeout: publishTimeout,
			// Each event is written on its own; don't wait for a batch to fill.
			BatchTimeout: 10 * time.Millisecond,
		},
		topic:   topic,
		timeout: publishTimeout,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e models.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(e.Vault.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
		Time: time.Unix(e.Timestamp, 0).UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
