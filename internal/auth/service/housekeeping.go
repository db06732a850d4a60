package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/makerden/memberauth/internal/auth/store"
)

// TokenGraceWindow is how long an expired grant lingers before pruning.
// The delay keeps recently expired tokens observable for debugging and
// late introspection attempts still answer with the uniform invalid shape.
const TokenGraceWindow = 24 * time.Hour

// HousekeepingService periodically prunes grants whose access token expired
// more than the grace window ago.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress prune ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.prune()

	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.stopCh:
			return
		}
	}
}

// prune deletes grants past the grace window.
func (s *HousekeepingService) prune() {
	ctx := context.Background()
	cutoff := time.Now().Add(-TokenGraceWindow)

	if err := s.Store.Tokens().DeleteExpiredTokens(ctx, cutoff); err != nil {
		s.Logger.Error("failed to prune expired tokens", "error", err)
		return
	}
	s.Logger.Debug("pruned expired tokens", "cutoff", cutoff)
}
