package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/202116302/AWS-log/internal/observability"
)

// Source abstracts the remote telemetry endpoint. FetchDay returns the raw
// feed text for one calendar day.
type Source interface {
	FetchDay(ctx context.Context, day time.Time) (string, error)
}

// Store is the contract the persistent series must satisfy. Write is
// insert-if-absent per record; instant arguments are half-open [from, to)
// bounds computed by the service. Empty read results surface as
// store.ErrNotFound, except BelowRadiation which returns an empty slice.
type Store interface {
	Write(ctx context.Context, records []Record) (int, error)
	Latest(ctx context.Context) (Record, error)
	Between(ctx context.Context, from, to time.Time, limit int) ([]Record, error)
	Since(ctx context.Context, from time.Time) ([]Record, error)
	BelowRadiation(ctx context.Context, threshold float64, from time.Time) ([]Record, error)
	Aggregate(ctx context.Context, from, to time.Time) (Stats, error)
}

// Service drives ingestion cycles and answers queries. All query methods are
// pure reads; only IngestDay writes, and only through insert-if-absent.
type Service struct {
	store  Store
	source Source
	log    *zap.Logger
}

func NewService(store Store, source Source, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		source: source,
		log:    log,
	}
}

// IngestDay runs one fetch-parse-store cycle for the given calendar day.
// A transport failure fails the whole cycle; bad feed lines and duplicate
// timestamps are absorbed and reported in the summary. Re-running a fully
// ingested day yields Written=0 without error.
func (s *Service) IngestDay(ctx context.Context, day time.Time) (IngestSummary, error) {
	summary := IngestSummary{
		RunID: uuid.NewString(),
		Day:   day.Format("2006-01-02"),
	}

	start := time.Now()
	raw, err := s.source.FetchDay(ctx, day)
	observability.FeedFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FeedFetchesTotal.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("fetch feed for %s: %w", summary.Day, err)
	}
	observability.FeedFetchesTotal.WithLabelValues("ok").Inc()

	records, skipped := ParseFeed(raw)
	summary.Received = len(records)
	summary.Skipped = skipped
	observability.RecordsReceivedTotal.Add(float64(len(records)))
	observability.LinesSkippedTotal.Add(float64(skipped))
	if skipped > 0 {
		s.log.Warn("feed lines skipped",
			zap.String("run_id", summary.RunID),
			zap.String("day", summary.Day),
			zap.Int("skipped", skipped))
	}

	written, err := s.store.Write(ctx, records)
	summary.Written = written
	observability.RecordsWrittenTotal.Add(float64(written))
	if err != nil {
		return summary, fmt.Errorf("store feed for %s: %w", summary.Day, err)
	}

	s.log.Info("ingestion cycle complete",
		zap.String("run_id", summary.RunID),
		zap.String("day", summary.Day),
		zap.Int("received", summary.Received),
		zap.Int("written", summary.Written),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// Latest returns the single most recent record.
func (s *Service) Latest(ctx context.Context) (Record, error) {
	return s.store.Latest(ctx)
}

// ByDate returns all records on the given calendar day, newest first.
func (s *Service) ByDate(ctx context.Context, day time.Time) ([]Record, error) {
	from := startOfDay(day)
	return s.store.Between(ctx, from, from.AddDate(0, 0, 1), 0)
}

// ByRange returns records with date in [start, end] inclusive, newest first,
// capped at limit. The cap keeps the most recent records.
func (s *Service) ByRange(ctx context.Context, start, end time.Time, limit int) ([]Record, error) {
	return s.store.Between(ctx, startOfDay(start), startOfDay(end).AddDate(0, 0, 1), limit)
}

// Recent returns records from the last `hours` hours, newest first.
func (s *Service) Recent(ctx context.Context, hours int) ([]Record, error) {
	from := time.Now().Add(-time.Duration(hours) * time.Hour)
	return s.store.Since(ctx, from)
}

// LowRadiation returns records from the last `days` calendar days whose
// radiation is strictly below threshold. An empty result is a valid empty
// list, not a not-found condition: callers use it as a yes/no signal for
// supplemental lighting.
func (s *Service) LowRadiation(ctx context.Context, threshold float64, days int) ([]Record, error) {
	from := startOfDay(time.Now()).AddDate(0, 0, -days)
	return s.store.BelowRadiation(ctx, threshold, from)
}

// Stats aggregates over [start, end] inclusive by date.
func (s *Service) Stats(ctx context.Context, start, end time.Time) (Stats, error) {
	return s.store.Aggregate(ctx, startOfDay(start), startOfDay(end).AddDate(0, 0, 1))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
