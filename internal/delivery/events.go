package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ajay-manwani/news-extraction/internal/models"
)

// Events publishes run completion records to Kafka for downstream
// consumers. Like Telegram delivery it is best-effort.
type Events struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewEvents opens a writer against the given brokers.
func NewEvents(brokers []string, topic string, log *slog.Logger) *Events {
	return &Events{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		log: log,
	}
}

// PublishRunCompleted emits the full run report keyed by run ID.
func (e *Events) PublishRunCompleted(ctx context.Context, run models.PipelineRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.ID),
		Value: payload,
		Time:  run.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}

	e.log.Debug("run event published", "run", run.ID, "status", run.Status)
	return nil
}

// Close flushes and closes the writer.
func (e *Events) Close() error {
	return e.writer.Close()
}
