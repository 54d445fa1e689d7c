package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/202116302/AWS-log/internal/telemetry"
)

// Scheduler periodically re-ingests the current day's feed. Every run is
// idempotent, so overlapping coverage between runs only costs a fetch.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *telemetry.Service
	interval  time.Duration
	log       *zap.Logger
}

func New(interval time.Duration, service *telemetry.Service, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		service:   service,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic ingestion job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 10
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		summary, err := s.service.IngestDay(ctx, time.Now())
		if err != nil {
			s.log.Error("scheduled ingestion failed",
				zap.String("day", summary.Day),
				zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
