package chats

import "context"

// InlinePurger deletes the chat of a deleted meeting within the request.
type InlinePurger struct {
	repo *Repository
}

// NewInlinePurger creates a purger that deletes chats synchronously.
func NewInlinePurger(repo *Repository) *InlinePurger {
	return &InlinePurger{repo: repo}
}

// PurgeChat deletes the chat. A chat that is already gone is not an error.
func (p *InlinePurger) PurgeChat(ctx context.Context, chatID string) error {
	return p.repo.Delete(ctx, chatID)
}

// Enqueuer schedules background chat deletion. *queue.Queue implements it.
type Enqueuer interface {
	EnqueueChatPurge(ctx context.Context, chatID string) error
}

// QueuedPurger hands chat deletion to the worker.
type QueuedPurger struct {
	queue Enqueuer
}

// NewQueuedPurger creates a purger that enqueues chat_purge jobs.
func NewQueuedPurger(q Enqueuer) *QueuedPurger {
	return &QueuedPurger{queue: q}
}

// PurgeChat enqueues the chat for deletion.
func (p *QueuedPurger) PurgeChat(ctx context.Context, chatID string) error {
	return p.queue.EnqueueChatPurge(ctx, chatID)
}
