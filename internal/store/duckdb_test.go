package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/202116302/AWS-log/internal/telemetry"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DefaultConfig(""), zap.NewNop())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(v float64) *float64 {
	return &v
}

func sample(ts time.Time, temp *float64) telemetry.Record {
	return telemetry.Record{
		Timestamp: ts,
		Temp:      temp,
		Humid:     ptr(60),
		Radn:      ptr(0.3),
		Rainfall:  ptr(0.1),
		Battery:   ptr(12.6),
	}
}

func TestWriteDedup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)

	batch := []telemetry.Record{
		sample(base, ptr(21.5)),
		sample(base.Add(time.Hour), ptr(21.7)),
	}

	written, err := db.Write(ctx, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	// Re-ingesting the same batch writes nothing and is not an error.
	written, err = db.Write(ctx, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}

	// A batch overlapping the existing series only writes the new record.
	written, err = db.Write(ctx, append(batch, sample(base.Add(2*time.Hour), ptr(22.0))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 1 {
		t.Fatalf("written = %d, want 1", written)
	}
}

func TestWriteDuplicateTimestampsInBatch(t *testing.T) {
	db := openTestDB(t)
	ts := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)

	// The source occasionally repeats rows within one feed; only the first
	// insert wins.
	written, err := db.Write(context.Background(), []telemetry.Record{
		sample(ts, ptr(21.5)),
		sample(ts, ptr(99.9)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 1 {
		t.Fatalf("written = %d, want 1", written)
	}

	rec, err := db.Latest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Temp == nil || *rec.Temp != 21.5 {
		t.Errorf("stored temp = %v, want first row's 21.5", rec.Temp)
	}
}

func TestLatest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty series: err = %v, want ErrNotFound", err)
	}

	base := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)
	_, err := db.Write(ctx, []telemetry.Record{
		sample(base, ptr(20)),
		sample(base.Add(2*time.Hour), ptr(22)),
		sample(base.Add(time.Hour), ptr(21)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := db.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("latest timestamp = %v, want %v", rec.Timestamp, base.Add(2*time.Hour))
	}
}

func TestBetweenCapKeepsMostRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	records := make([]telemetry.Record, 0, 50)
	for i := 0; i < 50; i++ {
		records = append(records, sample(base.Add(time.Duration(i)*10*time.Minute), ptr(20)))
	}
	if _, err := db.Write(ctx, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.Between(ctx, base, base.AddDate(0, 0, 1), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}

	// Descending order, and the cap keeps the newest records.
	want := base.Add(49 * 10 * time.Minute)
	for i, rec := range got {
		if !rec.Timestamp.Equal(want.Add(time.Duration(-i) * 10 * time.Minute)) {
			t.Fatalf("record %d timestamp = %v, out of order", i, rec.Timestamp)
		}
	}
}

func TestBetweenEmptyIsNotFound(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	_, err := db.Between(context.Background(), base, base.AddDate(0, 0, 1), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)

	_, err := db.Write(ctx, []telemetry.Record{
		sample(base, ptr(20)),
		sample(base.Add(time.Hour), ptr(21)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.Since(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	if _, err := db.Since(ctx, base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBelowRadiation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)

	noRadn := sample(base.Add(2*time.Hour), ptr(20))
	noRadn.Radn = nil

	_, err := db.Write(ctx, []telemetry.Record{
		{Timestamp: base, Radn: ptr(50)},
		{Timestamp: base.Add(time.Hour), Radn: ptr(150)},
		noRadn,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.BelowRadiation(ctx, 100, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the 50 W/m² record qualifies; NULL radiation never matches.
	if len(got) != 1 || !got[0].Timestamp.Equal(base) {
		t.Fatalf("got %d records, want exactly the low-radiation one", len(got))
	}

	// Nothing below threshold is an empty list, not a not-found condition.
	got, err = db.BelowRadiation(ctx, 1, base)
	if err != nil {
		t.Fatalf("err = %v, want nil for empty result", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got = %v, want empty non-nil slice", got)
	}
}

func TestAggregate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	if _, err := db.Aggregate(ctx, base, base.AddDate(0, 0, 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty window: err = %v, want ErrNotFound", err)
	}

	_, err := db.Write(ctx, []telemetry.Record{
		{Timestamp: base.Add(9 * time.Hour), Temp: ptr(20), Rainfall: ptr(0.5)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := db.Aggregate(ctx, base, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DataCount != 1 {
		t.Errorf("data_count = %d, want 1", stats.DataCount)
	}
	for name, got := range map[string]*float64{
		"avg_temp": stats.AvgTemp, "max_temp": stats.MaxTemp, "min_temp": stats.MinTemp,
	} {
		if got == nil || *got != 20 {
			t.Errorf("%s = %v, want 20", name, got)
		}
	}
	if stats.TotalRainfall == nil || *stats.TotalRainfall != 0.5 {
		t.Errorf("total_rainfall = %v, want 0.5", stats.TotalRainfall)
	}
	// Every humidity value in the window is absent: the average is null,
	// not zero, and the count still reflects the window size.
	if stats.AvgHumid != nil {
		t.Errorf("avg_humid = %v, want nil", *stats.AvgHumid)
	}
}

func TestAggregateSkipsNullsPerField(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	_, err := db.Write(ctx, []telemetry.Record{
		{Timestamp: base.Add(1 * time.Hour), Temp: ptr(10), Humid: ptr(50)},
		{Timestamp: base.Add(2 * time.Hour), Temp: ptr(30)},
		{Timestamp: base.Add(3 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := db.Aggregate(ctx, base, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DataCount != 3 {
		t.Errorf("data_count = %d, want 3", stats.DataCount)
	}
	if stats.AvgTemp == nil || *stats.AvgTemp != 20 {
		t.Errorf("avg_temp = %v, want 20 (nulls excluded)", stats.AvgTemp)
	}
	if stats.AvgHumid == nil || *stats.AvgHumid != 50 {
		t.Errorf("avg_humid = %v, want 50", stats.AvgHumid)
	}
}
