// Package jobs runs the background maintenance schedules.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"expertmarket/internal/domain"
)

// defaultSchedule runs the sweep daily at 03:10, off the usual top-of-hour
// load spikes.
const defaultSchedule = "10 3 * * *"

// RetentionSweeper prunes audit entries older than the retention window on
// a cron schedule.
type RetentionSweeper struct {
	cron      *cron.Cron
	audit     domain.AuditRepository
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetentionSweeper creates a sweeper keeping retentionDays of audit
// history.
func NewRetentionSweeper(audit domain.AuditRepository, retentionDays int, logger *slog.Logger) (*RetentionSweeper, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionSweeper{
		cron:      cron.New(),
		audit:     audit,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  defaultSchedule,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the schedule and starts the cron loop. It also runs one
// sweep immediately so a long-stopped server catches up on boot.
func (s *RetentionSweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("register retention schedule: %w", err)
	}
	s.Sweep(ctx)
	s.cron.Start()
	s.logger.Info("audit retention sweeper started", "schedule", s.schedule, "retention", s.retention)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *RetentionSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("audit retention sweeper stopped")
}

// Sweep deletes audit entries older than the retention window.
func (s *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.audit.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("audit retention sweep failed", "cutoff", cutoff, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("pruned audit entries", "count", n, "cutoff", cutoff)
	}
}
