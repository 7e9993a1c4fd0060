package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amphitryon/backend/internal/metrics"
	"github.com/amphitryon/backend/pkg/queue"
)

type deleter struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (d *deleter) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, id)
	return nil
}

func (d *deleter) ids() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.deleted...)
}

type source struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (s *source) Dequeue(_ context.Context) (*queue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return nil, nil
	}
	j := s.jobs[0]
	s.jobs = s.jobs[1:]
	return j, nil
}

func (s *source) Retry(_ context.Context, job *queue.Job) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Attempt++
	s.retried = append(s.retried, job)
	return job.Attempt >= queue.MaxRetries, nil
}

func purgeJob(t *testing.T, chatID string) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.ChatPurgePayload{ChatID: chatID})
	require.NoError(t, err)
	return &queue.Job{ID: "job-" + chatID, Type: queue.JobTypeChatPurge, Payload: body}
}

func TestProcess(t *testing.T) {
	d := &deleter{}
	p := NewChatPurgeProcessor(d, &source{}, nil)

	require.NoError(t, p.Process(context.Background(), purgeJob(t, "chat-1")))
	assert.Equal(t, []string{"chat-1"}, d.ids())

	assert.Error(t, p.Process(context.Background(), &queue.Job{ID: "x", Type: "email"}))
	assert.Error(t, p.Process(context.Background(), purgeJob(t, "")))
}

func TestHandle_RetriesThenDeadLetters(t *testing.T) {
	src := &source{}
	p := NewChatPurgeProcessor(&deleter{err: errors.New("store down")}, src, nil)
	job := purgeJob(t, "chat-2")

	dlqBefore := testutil.ToFloat64(metrics.ChatPurgeJobsTotal.WithLabelValues("dlq"))
	for i := 0; i < queue.MaxRetries; i++ {
		assert.True(t, p.handle(context.Background(), job))
	}
	assert.Len(t, src.retried, queue.MaxRetries)
	assert.Equal(t, dlqBefore+1, testutil.ToFloat64(metrics.ChatPurgeJobsTotal.WithLabelValues("dlq")))
}

func TestRun_DrainsUntilCancelled(t *testing.T) {
	d := &deleter{}
	src := &source{jobs: []*queue.Job{purgeJob(t, "a"), purgeJob(t, "b")}}
	p := NewChatPurgeProcessor(d, src, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(d.ids()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, []string{"a", "b"}, d.ids())
}
