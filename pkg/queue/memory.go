package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LoadCoach/pkg/logger"
)

// ErrQueueFull is returned by MemoryQueue.Enqueue when the buffer is full.
var ErrQueueFull = errors.New("queue full")

// MemoryQueue runs jobs in-process. Used when no Redis is configured.
// Messages that exhaust their retries are logged and dropped.
type MemoryQueue struct {
	logger *logger.Logger
	config Config
	ch     chan Message
	jobs   map[string]Job
	mu     sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewMemoryQueue(lgr *logger.Logger, config Config) *MemoryQueue {
	config.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryQueue{
		logger: lgr,
		config: config,
		ch:     make(chan Message, config.QueueSize),
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	q.jobs[job.Type()] = job
	q.mu.Unlock()
}

func (q *MemoryQueue) Start() error {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("memory queue started", logger.Int("workers", q.config.Workers))
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.cancel()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	return q.push(msg)
}

func (q *MemoryQueue) push(msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			q.handle(msg)
		}
	}
}

func (q *MemoryQueue) handle(msg Message) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		return
	}

	err := job.Handle(q.ctx, msg.Payload)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	q.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))
	if msg.Attempts >= q.config.RetryLimit {
		q.logger.Error("max retries reached, dropping", logger.String("id", msg.ID))
		return
	}
	msg.Attempts++
	time.AfterFunc(q.config.RetryDelay, func() {
		if q.ctx.Err() != nil {
			return
		}
		if err := q.push(msg); err != nil {
			q.logger.Warn("retry dropped", logger.String("id", msg.ID), logger.Error(err))
		}
	})
}
