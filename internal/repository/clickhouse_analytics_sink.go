package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	pkgch "LoadCoach/pkg/clickhouse"
)

var _ domrepo.AnalyticsSink = (*CHAnalyticsSink)(nil)

// CHAnalyticsSink writes recommendation events to ClickHouse.
type CHAnalyticsSink struct {
	db    *sql.DB
	table string
}

func NewCHAnalyticsSink(ch *pkgch.Client) *CHAnalyticsSink {
	return &CHAnalyticsSink{
		db:    ch.DB(),
		table: pkgch.QualifiedTable(ch.Database(), pkgch.RecommendationEventsTable),
	}
}

func (s *CHAnalyticsSink) Record(ctx context.Context, ev models.RecommendationEvent) error {
	return s.RecordBatch(ctx, []models.RecommendationEvent{ev})
}

// RecordBatch inserts events as one multi-row statement per chunk.
func (s *CHAnalyticsSink) RecordBatch(ctx context.Context, events []models.RecommendationEvent) error {
	const chunkSize = 1000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, ev := range events[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, eventRow(ev)...)
		}
		q := fmt.Sprintf(`INSERT INTO %s (id, user_id, date, recommended_stress, confidence, workout_type,
            model_version, edge_case, alternatives_count, warnings_count, cached, generated_at) VALUES %s`,
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert recommendation events: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the connection pool belongs to pkg/clickhouse.
func (s *CHAnalyticsSink) Close() error { return nil }

func eventRow(ev models.RecommendationEvent) []interface{} {
	var cached uint8
	if ev.Cached {
		cached = 1
	}
	return []interface{}{
		ev.ID,
		ev.UserID,
		ev.Date,
		ev.RecommendedStress,
		ev.Confidence,
		string(ev.WorkoutType),
		ev.ModelVersion,
		string(ev.EdgeCase),
		uint8(ev.AlternativesCount),
		uint8(ev.WarningsCount),
		cached,
		ev.GeneratedAt,
	}
}
