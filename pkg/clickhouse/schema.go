package clickhouse

import "fmt"

// DefaultDatabase is used when no database is configured.
const DefaultDatabase = "loadcoach"

// Table names relative to the configured database.
const (
	SessionsTable             = "sessions"
	RecommendationEventsTable = "recommendation_events"
)

// SchemaStatements returns idempotent DDL for the session history and the
// recommendation analytics tables.
func SchemaStatements(database string) []string {
	if database == "" {
		database = DefaultDatabase
	}
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.%s (
            user_id      String,
            date         Date,
            stress       Float64,
            duration_sec UInt32,
            workout_type LowCardinality(String),
            recorded_at  DateTime DEFAULT now()
        )
        ENGINE = ReplacingMergeTree(recorded_at)
        PARTITION BY toYYYYMM(date)
        ORDER BY (user_id, date, workout_type)
    `, database, SessionsTable),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.%s (
            id                 UUID,
            user_id            String,
            date               Date,
            recommended_stress Float64,
            confidence         Float64,
            workout_type       LowCardinality(String),
            model_version      String,
            edge_case          LowCardinality(String),
            alternatives_count UInt8,
            warnings_count     UInt8,
            cached             UInt8,
            generated_at       DateTime64(3)
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(generated_at)
        ORDER BY (user_id, generated_at)
        TTL toDateTime(generated_at) + INTERVAL 400 DAY
    `, database, RecommendationEventsTable),
	}
}

// QualifiedTable joins database and table.
func QualifiedTable(database, table string) string {
	if database == "" {
		database = DefaultDatabase
	}
	return database + "." + table
}
