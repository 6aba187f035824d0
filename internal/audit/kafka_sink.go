package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client the Kafka sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaSink publishes each event to a topic, keyed by request id so one
// request's events land on one partition in order.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return &WriteError{Sink: s.Name(), Err: fmt.Errorf("encode event: %w", err)}
	}
	h := event.EventHeader()
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(h.RequestID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(h.Type)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return &WriteError{Sink: s.Name(), Err: err}
	}
	return nil
}

func (s *KafkaSink) Close() error {
	s.producer.Close()
	return nil
}
