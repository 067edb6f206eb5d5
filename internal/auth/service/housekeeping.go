package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
)

// HousekeepingService periodically cleans up expired database records to
// prevent unbounded growth of the revocation denylist and stale recovery
// tokens.
type HousekeepingService struct {
	Store       store.Store
	Revocations store.Revocations
	Logger      *slog.Logger
	Interval    time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, revocations store.Revocations, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:       st,
		Revocations: revocations,
		Logger:      logger,
		Interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
// Each deletion is independent - failures in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Info("starting housekeeping cleanup")

	if err := s.Revocations.DeleteExpired(ctx); err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
	} else {
		s.Logger.Debug("deleted expired revocations")
	}

	cutoff := time.Now().UTC().Add(-ResetTokenMaxAge)
	if err := s.Store.Accounts().ClearStaleResetTokens(ctx, cutoff); err != nil {
		s.Logger.Error("failed to clear stale reset tokens", "error", err)
	} else {
		s.Logger.Debug("cleared stale reset tokens")
	}

	s.Logger.Info("housekeeping cleanup completed")
}
