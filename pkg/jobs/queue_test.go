package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("redis down")
		}
		done <- job
		return nil
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 5})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "invalidate"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to completion")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("redis down")
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 2})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "1"}))
}

func TestQueueBackoffDoubles(t *testing.T) {
	q := NewQueue("test", nil, QueueConfig{RetryDelay: 10 * time.Millisecond})
	assert.Equal(t, 10*time.Millisecond, q.backoff(1))
	assert.Equal(t, 40*time.Millisecond, q.backoff(3))
}
