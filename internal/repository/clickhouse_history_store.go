package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	pkgch "LoadCoach/pkg/clickhouse"
	applogger "LoadCoach/pkg/logger"
)

var _ domrepo.LoadHistoryStore = (*CHHistoryStore)(nil)

// CHHistoryStore implements LoadHistoryStore backed by ClickHouse.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client) *CHHistoryStore {
	return &CHHistoryStore{
		db:    ch.DB(),
		table: pkgch.QualifiedTable(ch.Database(), pkgch.SessionsTable),
		l:     applogger.NewNop(),
	}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHHistoryStore) SessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StressRecord, error) {
	start := time.Now()
	const qtpl = `
        SELECT user_id, date, stress, duration_sec, workout_type
        FROM %s FINAL
        WHERE user_id = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		s.l.Error("clickhouse sessions query error",
			applogger.String("table", s.table),
			applogger.String("user_id", userID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.StressRecord, 0, 64)
	for rows.Next() {
		var (
			r   models.StressRecord
			sec uint32
		)
		if err := rows.Scan(&r.UserID, &r.Date, &r.Stress, &sec, &r.WorkoutType); err != nil {
			s.l.Error("clickhouse sessions scan error",
				applogger.String("table", s.table),
				applogger.String("user_id", userID),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.Duration = time.Duration(sec) * time.Second
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse sessions ok",
		applogger.String("user_id", userID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// AddSessions appends completed sessions, chunked into multi-row inserts.
func (s *CHHistoryStore) AddSessions(ctx context.Context, records []models.StressRecord) error {
	const chunkSize = 2000
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, r := range records[start:end] {
			if r.UserID == "" || r.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, r.UserID, r.Date, r.Stress, uint32(r.Duration/time.Second), r.WorkoutType)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (user_id, date, stress, duration_sec, workout_type) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert sessions: %w", err)
		}
	}
	return nil
}

func (s *CHHistoryStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
