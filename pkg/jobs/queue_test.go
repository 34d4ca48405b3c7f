package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("rollup", func(ctx context.Context, job Job) error { return nil }, QueueConfig{Logger: zap.NewNop()})
	err := q.Enqueue(Job{ID: "1"})
	assert.Error(t, err)
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan struct{}, 2)
	q := NewQueue("rollup", func(ctx context.Context, job Job) error {
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "attendance.rollup", Payload: "student-1"}))
	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "attendance.rollup", Payload: "student-2"}))

	waitFor(t, done, "first job not processed")
	waitFor(t, done, "second job not processed")
	assert.Eventually(t, func() bool { return q.Stats().Processed == 2 }, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("rollup", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{RetryDelay: 10 * time.Millisecond, MaxRetries: 3})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	waitFor(t, done, "job not retried")
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	q := NewQueue("rollup", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent")
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueCoalescesPendingKeys(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var handled int32
	q := NewQueue("rollup", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "blocker"}))
	waitFor(t, started, "blocker not picked up")

	require.NoError(t, q.Enqueue(Job{ID: "a", Key: "student-1"}))
	require.NoError(t, q.Enqueue(Job{ID: "b", Key: "student-1"}))
	require.NoError(t, q.Enqueue(Job{ID: "c", Key: "student-2"}))
	assert.Equal(t, 2, q.Stats().Pending)
	assert.Equal(t, uint64(1), q.Stats().Coalesced)

	close(release)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&handled) == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("rollup", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "running"}))
	waitFor(t, started, "job not picked up")
	require.NoError(t, q.Enqueue(Job{ID: "buffered"}))
	assert.Error(t, q.Enqueue(Job{ID: "overflow"}))
}

func TestMuxRoutesByType(t *testing.T) {
	var seen string
	mux := Mux{"attendance.rollup": func(ctx context.Context, job Job) error {
		seen = job.Payload.(string)
		return nil
	}}

	require.NoError(t, mux.Handle(context.Background(), Job{Type: "attendance.rollup", Payload: "student-1"}))
	assert.Equal(t, "student-1", seen)

	err := mux.Handle(context.Background(), Job{Type: "report.email"})
	assert.ErrorIs(t, err, ErrUnknownJobType)
}
