package ingest

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler runs sync-mode ingestion on a cron schedule so the store tracks
// datasource changes without manual runs.
type Scheduler struct {
	orchestrator *Orchestrator
	cron         *cron.Cron
	logger       arbor.ILogger
}

// NewScheduler creates a new ingestion scheduler
func NewScheduler(orchestrator *Orchestrator, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		cron:         cron.New(cron.WithSeconds()),
		logger:       logger,
	}
}

// Start begins scheduled sync runs
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every 6 hours
		schedule = "0 0 */6 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSync()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Ingestion scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Ingestion scheduler stopped")
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info().Msg("Starting scheduled sync ingestion")

	report, err := s.orchestrator.Run(ctx, Options{Sync: true})
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled sync ingestion failed")
		return
	}

	s.logger.Info().
		Int("ingested", len(report.Ingested)).
		Int("skipped", len(report.Skipped)).
		Int("deleted", len(report.Deleted)).
		Int("failed", len(report.Failed)).
		Msg("Scheduled sync ingestion completed")
}
