// Package jobs holds the background tasks started next to the HTTP server.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// ExpiryCanceller cancels open orders left over from previous days
type ExpiryCanceller interface {
	CancelExpired(ctx context.Context) (int64, error)
}

// ExpirySweeper runs CancelExpired once at start and then on every tick
type ExpirySweeper struct {
	canceller ExpiryCanceller
	interval  time.Duration
	logger    *slog.Logger
}

// NewExpirySweeper creates a sweeper; a non-positive interval means hourly
func NewExpirySweeper(canceller ExpiryCanceller, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweeper{
		canceller: canceller,
		interval:  interval,
		logger:    logger.With("component", "expiry_sweeper"),
	}
}

// Run blocks until ctx is cancelled
func (s *ExpirySweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Start runs the sweeper in its own goroutine
func (s *ExpirySweeper) Start(ctx context.Context) {
	go s.Run(ctx)
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	count, err := s.canceller.CancelExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("expiry sweep failed", "error", err)
		}
		return
	}
	s.logger.Debug("expiry sweep finished", "cancelled", count)
}
