package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/bqusers/internal/models"
	"github.com/hetulpatel/bqusers/internal/users"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PublishBatch sends one event per inserted user and returns the batch id.
// A nil writer or an empty batch is a no-op.
func PublishBatch(ctx context.Context, writer MessageWriter, dataset, table string, batch []users.User) (string, error) {
	if writer == nil || len(batch) == 0 {
		return "", nil
	}
	batchID := uuid.NewString()
	msgs, err := BuildMessages(dataset, table, batchID, batch, time.Now().UTC())
	if err != nil {
		return batchID, err
	}
	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return batchID, fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	return batchID, nil
}

// BuildMessages keys every message by batch id so a batch stays on one partition.
func BuildMessages(dataset, table, batchID string, batch []users.User, insertedAt time.Time) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, u := range batch {
		ev := models.NewUserEvent(dataset, table, batchID, u, insertedAt)
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal user %s: %w", u.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(batchID), Value: payload})
	}
	return msgs, nil
}
