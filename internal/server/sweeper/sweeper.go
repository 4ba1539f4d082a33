// Package sweeper periodically removes refresh records that outlived the
// retention window from stores without native expiry.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
)

type Sweeper struct {
	store     refreshtokens.Expirer
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    logging.Logger
	metrics   *metrics.Metrics
}

func New(store refreshtokens.Expirer, retention, interval time.Duration, logger logging.Logger, m *metrics.Metrics) *Sweeper {
	if retention <= 0 {
		retention = refreshtokens.DefaultRetention
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With("module", "sweeper"),
		metrics:   m,
	}
}

// SweepOnce deletes every record created at or before now-retention.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.metrics.StoreFailure("sweep")
		s.logger.Error(ctx, "refresh sweep failed", "error", err)
		return 0, err
	}
	s.metrics.SweepRemoved(n)
	if n > 0 {
		s.logger.Info(ctx, "refresh sweep removed records", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info(ctx, "Starting refresh sweeper", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping refresh sweeper...")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
