package middleware

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"LoadCoach/internal/domain/models"
)

type memSink struct {
	mu     sync.Mutex
	events []models.RecommendationEvent
	fails  int
	closed bool
}

func (s *memSink) Record(_ context.Context, ev models.RecommendationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("sink down")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type batchSink struct {
	memSink
	batches int
}

func (s *batchSink) RecordBatch(ctx context.Context, evs []models.RecommendationEvent) error {
	s.mu.Lock()
	s.batches++
	s.mu.Unlock()
	for _, ev := range evs {
		if err := s.Record(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

type dropCounter struct {
	mu      sync.Mutex
	reasons map[string]int
}

func (d *dropCounter) RecordRecommendation(string)     {}
func (d *dropCounter) RecordEdgeCase(string)           {}
func (d *dropCounter) RecordCacheLookup(bool)          {}
func (d *dropCounter) RecordTraining(string, string)   {}
func (d *dropCounter) RecordModelRMSE(string, float64) {}
func (d *dropCounter) RecordLatency(string, float64)   {}
func (d *dropCounter) RecordAnalyticsFailure(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reasons == nil {
		d.reasons = map[string]int{}
	}
	d.reasons[reason]++
}

func event(i int) models.RecommendationEvent {
	return models.RecommendationEvent{
		ID:                "e" + strconv.Itoa(i),
		UserID:            "u1",
		RecommendedStress: 100,
		Confidence:        0.8,
	}
}

func TestPipelineFlushesOnStop(t *testing.T) {
	sink := &memSink{}
	p := NewAnalyticsPipeline(sink, WithBatching(100, time.Hour))
	p.Start(context.Background())
	for i := 0; i < 5; i++ {
		if err := p.Record(context.Background(), event(i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.count() != 5 || !sink.closed {
		t.Fatalf("want 5 events and a closed sink, got %d closed=%v", sink.count(), sink.closed)
	}
}

func TestPipelineUsesBatchSink(t *testing.T) {
	sink := &batchSink{}
	p := NewAnalyticsPipeline(sink, WithBatching(2, time.Hour))
	for i := 0; i < 4; i++ {
		_ = p.Record(context.Background(), event(i))
	}
	p.Start(context.Background())
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.count() != 4 || sink.batches != 2 {
		t.Fatalf("want 4 events in 2 batches, got %d in %d", sink.count(), sink.batches)
	}
}

func TestPipelineDropsWhenFull(t *testing.T) {
	m := &dropCounter{}
	p := NewAnalyticsPipeline(&memSink{}, WithBufferSize(2), WithPipelineMetrics(m))
	for i := 0; i < 2; i++ {
		if err := p.Record(context.Background(), event(i)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := p.Record(context.Background(), event(3)); !errors.Is(err, ErrPipelineFull) {
		t.Fatalf("want ErrPipelineFull, got %v", err)
	}
	if m.reasons["pipeline_buffer_full"] != 1 || p.Pending() != 2 {
		t.Fatalf("unexpected state: %v pending=%d", m.reasons, p.Pending())
	}
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	p := NewAnalyticsPipeline(&memSink{})
	bad := event(1)
	bad.Confidence = 1.5
	if err := p.Record(context.Background(), bad); err == nil {
		t.Fatalf("want validation error")
	}
	if err := p.Record(context.Background(), models.RecommendationEvent{ID: "x"}); err == nil {
		t.Fatalf("want error for missing user")
	}
	if p.Pending() != 0 {
		t.Fatalf("invalid events must not be buffered")
	}
}

func TestPipelineRetriesWithoutDuplicates(t *testing.T) {
	sink := &memSink{fails: 1}
	p := NewAnalyticsPipeline(sink, WithRetry(2, time.Millisecond))
	for i := 0; i < 3; i++ {
		_ = p.Record(context.Background(), event(i))
	}
	p.Start(context.Background())
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.count() != 3 {
		t.Fatalf("want each event once, got %d", sink.count())
	}
}

func TestPipelineDropsAfterRetryBudget(t *testing.T) {
	m := &dropCounter{}
	sink := &memSink{fails: 100}
	p := NewAnalyticsPipeline(sink, WithRetry(1, time.Millisecond), WithPipelineMetrics(m))
	_ = p.Record(context.Background(), event(1))
	_ = p.Record(context.Background(), event(2))
	p.Start(context.Background())
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.count() != 0 || m.reasons["pipeline_drop"] != 2 {
		t.Fatalf("want 2 drops, got %v (stored %d)", m.reasons, sink.count())
	}
}
