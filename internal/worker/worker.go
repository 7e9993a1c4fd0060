package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/metrics"
	"github.com/amphitryon/backend/pkg/queue"
)

// ChatDeleter removes chats. *chats.Repository implements it.
type ChatDeleter interface {
	Delete(ctx context.Context, id string) error
}

// JobSource is the queue side the processor consumes. *queue.Queue implements it.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// ChatPurgeProcessor deletes the chats of deleted meetings.
type ChatPurgeProcessor struct {
	chats   ChatDeleter
	queue   JobSource
	logger  *zap.Logger
	backoff time.Duration
}

// NewChatPurgeProcessor creates a chat purge processor.
func NewChatPurgeProcessor(chats ChatDeleter, q JobSource, logger *zap.Logger) *ChatPurgeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatPurgeProcessor{chats: chats, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one chat purge job.
func (p *ChatPurgeProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeChatPurge {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ChatPurgePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.ChatID == "" {
		return fmt.Errorf("chat purge job %s has no chat id", job.ID)
	}
	if err := p.chats.Delete(ctx, payload.ChatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	p.logger.Info("chat purged", zap.String("chat_id", payload.ChatID), zap.String("job_id", job.ID))
	return nil
}

// handle processes a job and schedules a retry on failure. It reports whether
// the caller should back off.
func (p *ChatPurgeProcessor) handle(ctx context.Context, job *queue.Job) bool {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(ctx, job)
	if err == nil {
		metrics.ChatPurgeJobsTotal.WithLabelValues("ok").Inc()
		return false
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
	dead, reErr := p.queue.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.Error(reErr))
	}
	if dead {
		metrics.ChatPurgeJobsTotal.WithLabelValues("dlq").Inc()
	} else {
		metrics.ChatPurgeJobsTotal.WithLabelValues("retry").Inc()
	}
	return true
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ChatPurgeProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("chat purge worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		if p.handle(ctx, job) {
			p.sleep(ctx)
		}
	}
}

func (p *ChatPurgeProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
