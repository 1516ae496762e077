package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep drives answer-deadline expiry on a ticker. Expiry is also checked
// lazily on every buzz/answer touching a round, so the sweep only bounds how
// long an idle round can sit past its deadline.
type Sweep struct {
	registry *Registry
	interval time.Duration
	log      *zap.Logger
}

func NewSweep(registry *Registry, log *zap.Logger) *Sweep {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweep{
		registry: registry,
		interval: registry.cfg.SweepInterval,
		log:      log,
	}
}

// Run blocks until ctx is canceled.
func (s *Sweep) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("deadline sweep started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("deadline sweep stopped")
			return
		case now := <-ticker.C:
			s.registry.ExpireDue(now)
			s.registry.PruneTerminal(ctx)
		}
	}
}
