// Package scheduler runs periodic dataset backups on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/persistence"
)

// DefaultSchedule snapshots the dataset at the top of every hour.
const DefaultSchedule = "0 * * * *"

// Scheduler owns the cron runner. Jobs load the current dataset and hand it
// to the backup manager; an empty dataset is skipped so the retention window
// is not flushed with empty snapshots.
type Scheduler struct {
	cron        *cron.Cron
	persistence *persistence.Manager
	backups     *backup.Manager
	schedule    string
	logger      *slog.Logger
}

// NewScheduler builds a scheduler. An empty schedule uses DefaultSchedule.
func NewScheduler(pm *persistence.Manager, backups *backup.Manager, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	return &Scheduler{
		cron:        cron.New(),
		persistence: pm,
		backups:     backups,
		schedule:    schedule,
		logger:      slog.With("module", "scheduler"),
	}
}

// Start registers the backup job and begins the cron loop. The loop runs
// until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunBackup(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduled backups enabled", "schedule", s.schedule)

	return nil
}

// RunBackup performs one scheduled snapshot cycle.
func (s *Scheduler) RunBackup(ctx context.Context) {
	flows, err := s.persistence.LoadData(ctx)
	if err != nil {
		s.logger.Error("Scheduled backup could not load dataset", "error", err)

		return
	}

	if len(flows) == 0 {
		s.logger.Debug("Scheduled backup skipped, dataset empty")

		return
	}

	result := s.backups.CreateBackup(ctx, flows, models.BackupOperationScheduled, "Scheduled backup")
	if !result.Success {
		s.logger.Error("Scheduled backup failed", "error", result.Error)

		return
	}

	s.logger.Info("Scheduled backup created", "backup_id", result.BackupID, "flow_count", len(flows))
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
