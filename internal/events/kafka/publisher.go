// Package kafka publishes ledger events to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
)

// Config configures the publisher.
type Config struct {
	Brokers     []string
	TopicPrefix string // prepended to every topic, e.g. "ledger."
	Compression string // none, gzip, snappy, lz4 or zstd
}

// Publisher writes JSON-encoded events, one Kafka message per event.
type Publisher struct {
	writer *kafka.Writer
	prefix string
}

// NewPublisher creates a publisher. The topic is chosen per message, so the
// writer itself has none.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	codec, err := compression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			Compression:            codec,
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		prefix: cfg.TopicPrefix,
	}, nil
}

// Publish sends one event. The message key is the event's transaction id
// when it has one, keeping a transaction's events on one partition.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.prefix + topic,
		Key:   messageKey(data),
		Value: data,
	})
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func messageKey(data []byte) []byte {
	var probe struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.TransactionID == "" {
		return nil
	}
	return []byte(probe.TransactionID)
}

func compression(name string) (kafka.Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("kafka: unknown compression %q", name)
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
