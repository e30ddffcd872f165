package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0, 2)
	done := make(chan struct{}, 2)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, Options{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Kind: "audit"}))
	require.NoError(t, q.Enqueue(Job{ID: "b", Kind: "audit"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, Options{})
	err := q.Enqueue(Job{ID: "a"})
	require.Error(t, err)
}

func TestQueueRetriesFailedJob(t *testing.T) {
	attempts := make(chan int, 4)

	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		attempts <- job.Attempts
		if job.Attempts == 0 {
			return errors.New("transient")
		}
		return nil
	}, Options{Workers: 1, Retries: 2, Backoff: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))

	var got []int
	for i := 0; i < 2; i++ {
		select {
		case a := <-attempts:
			got = append(got, a)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for retry")
		}
	}
	assert.Equal(t, []int{0, 1}, got)
}

func TestQueueFlushesBufferOnStop(t *testing.T) {
	block := make(chan struct{})
	var mu sync.Mutex
	var seen []string

	q := NewQueue("flush", func(ctx context.Context, job Job) error {
		<-block
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, Options{Workers: 1, Buffer: 4})

	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	require.NoError(t, q.Enqueue(Job{ID: "c"}))

	close(block)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}
