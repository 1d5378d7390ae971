package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller is the consistency floor of the refresh contract: while a dashboard
// is mounted its data is re-fetched on a fixed interval, so staleness stays
// bounded even when a broadcast is missed.
type Poller struct {
	interval time.Duration
	refresh  func(context.Context)
	logger   *zap.Logger
}

// NewPoller creates a poller invoking refresh every interval.
func NewPoller(interval time.Duration, refresh func(context.Context), logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{interval: interval, refresh: refresh, logger: logger}
}

// Run invokes the refresh callback on every tick until ctx is cancelled.
// Cancelling ctx is the unmount: the ticker is stopped and no further
// refreshes fire.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}
