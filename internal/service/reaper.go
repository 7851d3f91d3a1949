package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/devfolio/devfolio-server/internal/observability"
	"github.com/devfolio/devfolio-server/internal/repository"
)

// Reaper sweeps expired refresh-token rows. Rotation already deletes expired
// rows it touches; the sweep covers credentials that are simply never
// presented again.
type Reaper struct {
	repo     repository.RefreshTokenRepository
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewReaper(repo repository.RefreshTokenRepository, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{repo: repo, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps on the configured interval until the context ends. Sweep errors
// are logged, not fatal; the next tick retries.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("refresh token sweep failed", "error", err)
			}
		}
	}
}

func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	removed, err := r.repo.DeleteExpired(r.now())
	if err != nil {
		return 0, err
	}
	observability.RecordReapedTokens(removed)
	if removed > 0 {
		r.logger.InfoContext(ctx, "expired refresh tokens removed", "count", removed)
	}
	return removed, nil
}
