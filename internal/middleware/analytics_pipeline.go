package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	applogger "LoadCoach/pkg/logger"
)

// ErrPipelineFull is returned when the buffer cannot take another event.
var ErrPipelineFull = errors.New("analytics pipeline buffer full")

// BatchSink is implemented by sinks that can write many events in one call.
type BatchSink interface {
	RecordBatch(ctx context.Context, events []models.RecommendationEvent) error
}

// AnalyticsPipeline sits between the recommendation engine and the analytics
// sink. Record never blocks: events are validated, buffered and flushed in
// batches by a background worker. Events that cannot be buffered or written
// after the retry budget are dropped and counted.
type AnalyticsPipeline struct {
	sink    domrepo.AnalyticsSink
	metrics domrepo.Metrics
	log     *applogger.Logger

	bufSize       int
	batchSize     int
	flushInterval time.Duration
	maxRetries    int
	backoff       time.Duration

	bufCh   chan models.RecommendationEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
}

var _ domsvc.AnalyticsRecorder = (*AnalyticsPipeline)(nil)

type PipelineOption func(*AnalyticsPipeline)

// WithBufferSize sets the number of events held while the sink is slow.
func WithBufferSize(n int) PipelineOption {
	return func(p *AnalyticsPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatching sets the flush size and the maximum time an event waits.
func WithBatching(size int, interval time.Duration) PipelineOption {
	return func(p *AnalyticsPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if interval > 0 {
			p.flushInterval = interval
		}
	}
}

// WithRetry sets how often a failed batch is retried and the initial backoff.
func WithRetry(max int, backoff time.Duration) PipelineOption {
	return func(p *AnalyticsPipeline) {
		if max >= 0 {
			p.maxRetries = max
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *AnalyticsPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *AnalyticsPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewAnalyticsPipeline creates a pipeline in front of sink.
func NewAnalyticsPipeline(sink domrepo.AnalyticsSink, opts ...PipelineOption) *AnalyticsPipeline {
	p := &AnalyticsPipeline{
		sink:          sink,
		metrics:       domrepo.NopMetrics{},
		log:           applogger.NewNop(),
		bufSize:       1000,
		batchSize:     100,
		flushInterval: 2 * time.Second,
		maxRetries:    3,
		backoff:       50 * time.Millisecond,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.RecommendationEvent, p.bufSize)
	return p
}

// Record validates ev and buffers it without blocking.
func (p *AnalyticsPipeline) Record(_ context.Context, ev models.RecommendationEvent) error {
	if err := validateEvent(ev); err != nil {
		p.metrics.RecordAnalyticsFailure("pipeline_validate")
		return err
	}
	select {
	case p.bufCh <- ev:
		return nil
	default:
		p.metrics.RecordAnalyticsFailure("pipeline_buffer_full")
		return ErrPipelineFull
	}
}

// Start launches the background flusher. The worker outlives ctx only long
// enough to drain the buffer on Stop.
func (p *AnalyticsPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(context.WithoutCancel(ctx))
}

// Stop flushes whatever is buffered and waits for the worker, or for ctx.
func (p *AnalyticsPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)

	select {
	case <-p.doneCh:
		return p.sink.Close()
	case <-ctx.Done():
		return fmt.Errorf("analytics pipeline stop: %w", ctx.Err())
	}
}

// Pending returns the number of buffered events.
func (p *AnalyticsPipeline) Pending() int {
	return len(p.bufCh)
}

func (p *AnalyticsPipeline) run(ctx context.Context) {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	batch := make([]models.RecommendationEvent, 0, p.batchSize)
	for {
		select {
		case ev := <-p.bufCh:
			batch = append(batch, ev)
			if len(batch) >= p.batchSize {
				p.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-p.stopCh:
			for {
				select {
				case ev := <-p.bufCh:
					batch = append(batch, ev)
					if len(batch) >= p.batchSize {
						p.flush(ctx, batch)
						batch = batch[:0]
					}
				default:
					if len(batch) > 0 {
						p.flush(ctx, batch)
					}
					return
				}
			}
		}
	}
}

func (p *AnalyticsPipeline) flush(ctx context.Context, batch []models.RecommendationEvent) {
	start := time.Now()
	backoff := p.backoff
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			if backoff < 2*time.Second {
				backoff *= 2
			}
		}
		var n int
		n, err = p.write(ctx, batch)
		batch = batch[n:]
		if err == nil {
			p.metrics.RecordLatency("analytics_flush", time.Since(start).Seconds())
			return
		}
	}
	for range batch {
		p.metrics.RecordAnalyticsFailure("pipeline_drop")
	}
	p.log.Warn("analytics batch dropped",
		applogger.Int("events", len(batch)),
		applogger.Int("attempts", p.maxRetries+1),
		applogger.Error(err),
	)
}

// write returns how many leading events of batch were stored.
func (p *AnalyticsPipeline) write(ctx context.Context, batch []models.RecommendationEvent) (int, error) {
	if bs, ok := p.sink.(BatchSink); ok {
		if err := bs.RecordBatch(ctx, batch); err != nil {
			return 0, err
		}
		return len(batch), nil
	}
	for i, ev := range batch {
		if err := p.sink.Record(ctx, ev); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}

func validateEvent(ev models.RecommendationEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("event id empty")
	}
	if ev.UserID == "" {
		return fmt.Errorf("user id empty")
	}
	if ev.RecommendedStress < 0 {
		return fmt.Errorf("negative stress")
	}
	if ev.Confidence < 0 || ev.Confidence > 1 {
		return fmt.Errorf("confidence out of range")
	}
	return nil
}
