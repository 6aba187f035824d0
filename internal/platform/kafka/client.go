// Package kafka builds the franz-go producer used by the audit topic sink.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sanctions-gateway/internal/platform/config"
)

// Producer is a franz-go client configured to produce to the audit topic.
type Producer struct {
	*kgo.Client
	topic string
}

// NewProducer connects to the configured brokers. Returns nil when no
// brokers are configured (Kafka sink disabled).
func NewProducer(ctx context.Context, cfg config.Kafka) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Producer{Client: client, topic: cfg.Topic}, nil
}

// Topic returns the default produce topic.
func (p *Producer) Topic() string {
	return p.topic
}

// Health pings the seed brokers.
func (p *Producer) Health(ctx context.Context) error {
	return p.Ping(ctx)
}

// EnsureTopic creates the audit topic if it does not exist yet. Replication
// is left to the broker default.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32) error {
	admin := kadm.NewClient(p.Client)
	_, err := admin.CreateTopic(ctx, partitions, -1, nil, p.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	return nil
}
