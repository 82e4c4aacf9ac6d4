package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// EventType is the event_type header value of every published message.
const EventType = "partition_written"

// messageWriter is the subset of *kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier publishes one message per written partition so downstream jobs
// can start as soon as a run date lands.
type Notifier struct {
	writer messageWriter
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the partition topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// PartitionWritten publishes ev keyed by partition URI, so every run date of
// a partition lands on the same Kafka partition in order.
func (n *Notifier) PartitionWritten(ctx context.Context, ev domain.PartitionWritten) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish partition event: %w", err)
	}
	n.logger.Debug("partition event published", "uri", ev.URI, "run_id", ev.RunID)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a PartitionWritten event into a Kafka message.
func serializeToMessage(ev domain.PartitionWritten) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize partition event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.URI),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "source", Value: []byte(ev.Source)},
			{Key: "run_date", Value: []byte(ev.RunDate)},
			{Key: "written_at", Value: []byte(ev.WrittenAt.Format(time.RFC3339))},
		},
	}, nil
}
