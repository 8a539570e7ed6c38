package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"LoadCoach/pkg/logger"
)

type trainPayload struct {
	UserID string `json:"user_id"`
}

type countingJob struct {
	calls  atomic.Int32
	failN  int32
	userCh chan string
}

func (j *countingJob) Type() string { return "train_user_model" }

func (j *countingJob) Handle(_ context.Context, payload []byte) error {
	n := j.calls.Add(1)
	if n <= j.failN {
		return errors.New("transient")
	}
	p, err := ParsePayload[trainPayload](payload)
	if err != nil {
		return err
	}
	j.userCh <- p.UserID
	return nil
}

func TestMemoryQueueRetriesThenSucceeds(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), Config{Workers: 1, RetryLimit: 2, RetryDelay: 10 * time.Millisecond})
	job := &countingJob{failN: 1, userCh: make(chan string, 1)}
	q.RegisterJob(job)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop(context.Background())

	if err := q.Enqueue(context.Background(), job.Type(), trainPayload{UserID: "u1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case got := <-job.userCh:
		if got != "u1" {
			t.Fatalf("unexpected user %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not succeed after retry")
	}
	if job.calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", job.calls.Load())
	}
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), Config{QueueSize: 1})
	ctx := context.Background()
	if err := q.Enqueue(ctx, "x", 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, "x", 2); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
