// Package store persists weather records in DuckDB, keyed by timestamp.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/202116302/AWS-log/internal/telemetry"
)

// ErrNotFound is returned when a query over valid arguments matches nothing.
var ErrNotFound = errors.New("no weather data found")

const schema = `
CREATE TABLE IF NOT EXISTS weather_data (
	timestamp   TIMESTAMP PRIMARY KEY,
	temp        DOUBLE,
	humid       DOUBLE,
	radn        DOUBLE,
	wind_degree DOUBLE,
	wind        DOUBLE,
	rainfall    DOUBLE,
	battery     DOUBLE
)`

const recordColumns = "timestamp, temp, humid, radn, wind_degree, wind, rainfall, battery"

// Config holds database connection options.
type Config struct {
	// Path is the database file; empty means in-memory.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DB is the DuckDB-backed series store. It is safe for concurrent use; the
// dedup invariant is enforced by the database itself (INSERT OR IGNORE on
// the timestamp primary key), never by a check-then-insert in Go.
type DB struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens the database, verifies connectivity, and bootstraps the schema.
func Open(cfg Config, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db: db, log: log}, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

// Write inserts each record unless a record with its timestamp already
// exists, and returns how many were newly written. A failure on one record
// is logged and does not abort the rest; there is no batch rollback. Only
// when every insert fails is an error returned, since that indicates the
// store itself is down rather than a bad row.
func (s *DB) Write(ctx context.Context, records []telemetry.Record) (int, error) {
	written := 0
	failed := 0
	var lastErr error

	for _, r := range records {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO weather_data (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Timestamp, r.Temp, r.Humid, r.Radn,
			r.WindDegree, r.Wind, r.Rainfall, r.Battery)
		if err != nil {
			failed++
			lastErr = err
			s.log.Warn("record write failed",
				zap.Time("timestamp", r.Timestamp),
				zap.Error(err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	if failed > 0 && written == 0 && failed == len(records) {
		return 0, fmt.Errorf("all %d writes failed: %w", failed, lastErr)
	}
	return written, nil
}

// Latest returns the most recent record.
func (s *DB) Latest(ctx context.Context) (telemetry.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM weather_data
		ORDER BY timestamp DESC
		LIMIT 1`)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return telemetry.Record{}, ErrNotFound
	}
	if err != nil {
		return telemetry.Record{}, fmt.Errorf("query latest: %w", err)
	}
	return rec, nil
}

// Between returns records with from <= timestamp < to, newest first. A
// positive limit caps the result at the `limit` most recent records.
func (s *DB) Between(ctx context.Context, from, to time.Time, limit int) ([]telemetry.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM weather_data
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC`
	args := []any{from, to}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	records, err := s.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Since returns records with timestamp >= from, newest first.
func (s *DB) Since(ctx context.Context, from time.Time) ([]telemetry.Record, error) {
	records, err := s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM weather_data
		WHERE timestamp >= ?
		ORDER BY timestamp DESC`, from)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// BelowRadiation returns records since `from` whose radiation is strictly
// below threshold, newest first. NULL radiation never matches. An empty
// result is returned as an empty slice, not ErrNotFound.
func (s *DB) BelowRadiation(ctx context.Context, threshold float64, from time.Time) ([]telemetry.Record, error) {
	records, err := s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM weather_data
		WHERE radn < ? AND timestamp >= ?
		ORDER BY timestamp DESC`, threshold, from)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = make([]telemetry.Record, 0)
	}
	return records, nil
}

// Aggregate computes statistics over from <= timestamp < to. SQL aggregates
// skip NULLs on their own; COUNT(*) counts every row. A window with no rows
// is ErrNotFound, never an all-NULL Stats.
func (s *DB) Aggregate(ctx context.Context, from, to time.Time) (telemetry.Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			AVG(temp), MAX(temp), MIN(temp),
			AVG(humid), SUM(rainfall), AVG(radn),
			COUNT(*)
		FROM weather_data
		WHERE timestamp >= ? AND timestamp < ?`, from, to)

	var avgTemp, maxTemp, minTemp, avgHumid, totalRainfall, avgRadn sql.NullFloat64
	var count int
	if err := row.Scan(&avgTemp, &maxTemp, &minTemp, &avgHumid, &totalRainfall, &avgRadn, &count); err != nil {
		return telemetry.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	if count == 0 {
		return telemetry.Stats{}, ErrNotFound
	}

	return telemetry.Stats{
		AvgTemp:       nullToPtr(avgTemp),
		MaxTemp:       nullToPtr(maxTemp),
		MinTemp:       nullToPtr(minTemp),
		AvgHumid:      nullToPtr(avgHumid),
		TotalRainfall: nullToPtr(totalRainfall),
		AvgRadn:       nullToPtr(avgRadn),
		DataCount:     count,
	}, nil
}

func (s *DB) queryRecords(ctx context.Context, query string, args ...any) ([]telemetry.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []telemetry.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (telemetry.Record, error) {
	var rec telemetry.Record
	var temp, humid, radn, windDegree, wind, rainfall, battery sql.NullFloat64

	err := row.Scan(&rec.Timestamp, &temp, &humid, &radn, &windDegree, &wind, &rainfall, &battery)
	if err != nil {
		return telemetry.Record{}, err
	}

	rec.Temp = nullToPtr(temp)
	rec.Humid = nullToPtr(humid)
	rec.Radn = nullToPtr(radn)
	rec.WindDegree = nullToPtr(windDegree)
	rec.Wind = nullToPtr(wind)
	rec.Rainfall = nullToPtr(rainfall)
	rec.Battery = nullToPtr(battery)
	return rec, nil
}

func nullToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
