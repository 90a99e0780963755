package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"provena/internal/audit"
)

// Publisher mirrors audit entries to a Kafka topic. Consumers key on the
// entry ID, so partitions preserve per-writer ordering well enough for
// downstream materialization.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

type message struct {
	ID            uint64 `json:"id"`
	Actor         string `json:"actor"`
	Action        string `json:"action"`
	Category      string `json:"category"`
	SubjectItemID string `json:"subject_item_id"`
	Timestamp     string `json:"timestamp"`
	Payload       []byte `json:"payload,omitempty"`
}

func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) error {
	data, err := json.Marshal(message{
		ID:            uint64(entry.ID),
		Actor:         entry.Actor.String(),
		Action:        entry.Action,
		Category:      string(audit.Category(entry.Action)),
		SubjectItemID: entry.SubjectItemID.String(),
		Timestamp:     entry.Timestamp.Format(time.RFC3339Nano),
		Payload:       entry.Payload,
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(entry.ID), 10)),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
