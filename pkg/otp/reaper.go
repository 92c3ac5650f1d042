package otp

import (
	"context"
	"time"

	"github.com/campuspulse/platform/pkg/common/logger"
)

type reaperStore interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper periodically purges codes expired longer than the grace period.
// Expiry itself is checked lazily at verification time, so the reaper is
// storage hygiene only.
type Reaper struct {
	store    reaperStore
	interval time.Duration
	grace    time.Duration
}

func NewReaper(store reaperStore, interval, grace time.Duration) *Reaper {
	return &Reaper{store: store, interval: interval, grace: grace}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.grace)
			purged, err := r.store.DeleteExpiredBefore(ctx, cutoff)
			if err != nil {
				logger.Log.WithError(err).Error("otp reaper sweep failed")
				continue
			}
			if purged > 0 {
				logger.Log.WithField("purged", purged).Info("otp reaper sweep complete")
			}
		}
	}
}
