/**
 * @description
 * Cron scheduler setup for the ledger-service maintenance jobs.
 */
package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron           *cron.Cron
	jobs           *Jobs
	logger         zerolog.Logger
	expirySchedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger zerolog.Logger, expirySchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(&logger)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:           c,
		jobs:           jobs,
		logger:         logger,
		expirySchedule: expirySchedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
// An invalid schedule is reported and returned without starting anything.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.expirySchedule, s.jobs.ExpireSubscriptions); err != nil {
		s.logger.Error().Str("schedule", s.expirySchedule).Err(err).Msg("failed to schedule subscription expiry job")
		return err
	}
	s.logger.Info().Str("schedule", s.expirySchedule).Msg("scheduled subscription expiry job")

	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
