package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	"LoadCoach/pkg/util"
)

var (
	_ domrepo.LoadHistoryStore   = (*SQLiteStore)(nil)
	_ domrepo.AnalyticsSink      = (*SQLiteStore)(nil)
	_ domrepo.ModelArtifactStore = (*SQLiteStore)(nil)
)

// SQLiteStore is the embedded backend for local mode: session history,
// recommendation events and model artifacts in one file.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
        id           INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id      TEXT    NOT NULL,
        date         TEXT    NOT NULL,
        stress       REAL    NOT NULL,
        duration_sec INTEGER NOT NULL DEFAULT 0,
        workout_type TEXT    NOT NULL DEFAULT ''
    )`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON sessions (user_id, date)`,
	`CREATE TABLE IF NOT EXISTS recommendation_events (
        id                 TEXT PRIMARY KEY,
        user_id            TEXT    NOT NULL,
        date               TEXT    NOT NULL,
        recommended_stress REAL    NOT NULL,
        confidence         REAL    NOT NULL,
        workout_type       TEXT    NOT NULL,
        model_version      TEXT    NOT NULL,
        edge_case          TEXT    NOT NULL DEFAULT '',
        alternatives_count INTEGER NOT NULL DEFAULT 0,
        warnings_count     INTEGER NOT NULL DEFAULT 0,
        cached             INTEGER NOT NULL DEFAULT 0,
        generated_at       TEXT    NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS model_artifacts (
        user_id  TEXT NOT NULL,
        version  TEXT NOT NULL,
        artifact BLOB NOT NULL,
        PRIMARY KEY (user_id, version)
    )`,
	`CREATE TABLE IF NOT EXISTS model_current (
        user_id TEXT PRIMARY KEY,
        version TEXT NOT NULL
    )`,
}

// NewSQLiteStore opens path (":memory:" is allowed) and applies the schema.
// A single connection serializes writes and keeps in-memory databases shared.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite wal: %w", err)
		}
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id, date, stress, duration_sec, workout_type
        FROM sessions
        WHERE user_id = ? AND date >= ? AND date <= ?
        ORDER BY date ASC, id ASC`,
		userID, util.FormatDay(from), util.FormatDay(to))
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.StressRecord, 0, 64)
	for rows.Next() {
		var (
			r   models.StressRecord
			day string
			sec int64
		)
		if err := rows.Scan(&r.UserID, &day, &r.Stress, &sec, &r.WorkoutType); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if r.Date, err = util.ParseDay(day); err != nil {
			return nil, fmt.Errorf("parse session date %q: %w", day, err)
		}
		r.Duration = time.Duration(sec) * time.Second
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddSessions inserts sessions in one transaction.
func (s *SQLiteStore) AddSessions(ctx context.Context, records []models.StressRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sessions (user_id, date, stress, duration_sec, workout_type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.UserID, util.FormatDay(r.Date), r.Stress, int64(r.Duration/time.Second), r.WorkoutType); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert session: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Record(ctx context.Context, ev models.RecommendationEvent) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO recommendation_events (id, user_id, date, recommended_stress, confidence, workout_type,
            model_version, edge_case, alternatives_count, warnings_count, cached, generated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.Date, ev.RecommendedStress, ev.Confidence, string(ev.WorkoutType),
		ev.ModelVersion, string(ev.EdgeCase), ev.AlternativesCount, ev.WarningsCount, ev.Cached,
		ev.GeneratedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert recommendation event: %w", err)
	}
	return nil
}

// CountEvents returns the number of recorded events for a user.
func (s *SQLiteStore) CountEvents(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendation_events WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Save(ctx context.Context, userID, version string, artifact []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO model_artifacts (user_id, version, artifact) VALUES (?, ?, ?)
        ON CONFLICT (user_id, version) DO UPDATE SET artifact = excluded.artifact`,
		userID, version, artifact)
	if err != nil {
		return fmt.Errorf("save artifact %s/%s: %w", userID, version, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID, version string) ([]byte, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT artifact FROM model_artifacts WHERE user_id = ? AND version = ?`, userID, version).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domsvc.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s/%s: %w", userID, version, err)
	}
	return b, nil
}

func (s *SQLiteStore) SetCurrent(ctx context.Context, userID, version string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO model_current (user_id, version) VALUES (?, ?)
        ON CONFLICT (user_id) DO UPDATE SET version = excluded.version`,
		userID, version)
	if err != nil {
		return fmt.Errorf("set current model %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Current(ctx context.Context, userID string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT version FROM model_current WHERE user_id = ?`, userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domsvc.ErrArtifactNotFound
	}
	if err != nil {
		return "", fmt.Errorf("current model %s: %w", userID, err)
	}
	return v, nil
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is idempotent; the store is shared by several roles.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.db.Close() })
	return err
}
