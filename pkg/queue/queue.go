package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueChatPurge is the Redis list key for chat purge jobs.
	QueueChatPurge = "worker:chat_purge"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one blocking pop so the worker can observe shutdown.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeChatPurge JobType = "chat_purge"
)

// ChatPurgePayload is the payload for chat purge jobs.
type ChatPurgePayload struct {
	ChatID string `json:"chat_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListClient is the subset of the Redis client the queue needs. *redis.Client implements it.
type ListClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client ListClient
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client ListClient, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueChatPurge enqueues deletion of a chat whose meeting was deleted.
func (q *Queue) EnqueueChatPurge(ctx context.Context, chatID string) error {
	body, err := json.Marshal(ChatPurgePayload{ChatID: chatID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeChatPurge,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueChatPurge, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued chat purge job", zap.String("job_id", job.ID), zap.String("chat_id", chatID))
	return nil
}

// Dequeue waits up to PollTimeout for a job. It returns a nil job when none
// arrived or the payload could not be decoded.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, PollTimeout, QueueChatPurge).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. Once attempt reaches
// MaxRetries the job goes to the DLQ instead and deadLettered is true.
func (q *Queue) Retry(ctx context.Context, job *Job) (deadLettered bool, err error) {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return false, err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	if err := q.client.RPush(ctx, QueueChatPurge, raw).Err(); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}
