package scheduler

import (
	"context"
	"time"

	"gitlab.com/yelinaung/finance-concierge/internal/logger"
)

// SessionSweeper deactivates chat sessions idle since before.
type SessionSweeper interface {
	SweepIdle(ctx context.Context, before time.Time) (int, error)
}

// TokenPurger deletes expired refresh tokens.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// SweepSessions returns a job that retires sessions idle for longer than idle.
func SweepSessions(s SessionSweeper, idle time.Duration, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		n, err := s.SweepIdle(ctx, now().Add(-idle))
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Log.Info().Int("count", n).Msg("Idle chat sessions swept")
		}
		return nil
	}
}

// PurgeTokens returns a job that removes expired refresh tokens.
func PurgeTokens(p TokenPurger) Job {
	return func(ctx context.Context) error {
		n, err := p.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Log.Info().Int64("count", n).Msg("Expired refresh tokens purged")
		}
		return nil
	}
}
