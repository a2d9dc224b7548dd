package reconcile

import (
	"log/slog"
	"time"

	"github.com/billingkit/billingkit/pkg/poller"
)

// Option configures optional engine settings.
type Option func(*Engine)

// WithLogger attaches a structured logger for per-transition diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPollerConfig overrides the polling profile Subscribe uses while the
// user is waiting at checkout.
func WithPollerConfig(cfg poller.Config) Option {
	return func(e *Engine) {
		e.pollCfg = cfg
	}
}

// WithResumePollerConfig overrides the polling profile PollExisting uses for
// background resume flows.
func WithResumePollerConfig(cfg poller.Config) Option {
	return func(e *Engine) {
		e.resumeCfg = cfg
	}
}

// WithStalenessThreshold overrides the maximum age a cached record may have
// before CurrentSubscription flags it as stale.
func WithStalenessThreshold(threshold time.Duration) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.staleness = threshold
		}
	}
}
