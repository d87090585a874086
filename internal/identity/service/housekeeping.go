package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/airlockhq/identity/internal/identity/store"
)

// DefaultAuditRetention bounds how long audit rows are kept before the
// housekeeping loop trims them.
const DefaultAuditRetention = 90 * 24 * time.Hour

// HousekeepingService periodically deletes expired API keys and trims old
// audit rows so neither table grows without bound.
type HousekeepingService struct {
	Store          store.Store
	Logger         *slog.Logger
	Interval       time.Duration
	AuditRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService builds the background cleaner. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:          st,
		Logger:         logger,
		Interval:       interval,
		AuditRetention: DefaultAuditRetention,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once at startup so a long interval doesn't delay the first pass.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs each cleanup independently; one failing does not stop the other.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now().UTC()

	if n, err := s.Store.APIKeys().DeleteExpiredAPIKeys(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired api keys", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted expired api keys", "count", n)
	}

	cutoff := now.Add(-s.AuditRetention)
	if n, err := s.Store.AuditLogs().DeleteAuditEntriesBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to trim audit log", "error", err)
	} else if n > 0 {
		s.Logger.Info("trimmed audit log", "count", n)
	}
}
