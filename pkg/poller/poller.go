package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/billingkit/billingkit/pkg/gateway"
)

const (
	defaultMaxAttempts  = 5
	defaultInitialDelay = 1500 * time.Millisecond
	defaultDeadline     = 60 * time.Second
)

// Config controls how long and how often a payment is polled.
type Config struct {
	MaxAttempts  int           `env:"POLLER_MAX_ATTEMPTS" envDefault:"5"`      // MaxAttempts bounds the number of getPayment calls per poll.
	InitialDelay time.Duration `env:"POLLER_INITIAL_DELAY" envDefault:"1.5s"`  // InitialDelay seeds the backoff; attempt n waits n * InitialDelay.
	Deadline     time.Duration `env:"POLLER_DEADLINE" envDefault:"60s"`        // Deadline is the hard wall-clock ceiling for the whole poll.
}

// InteractiveConfig returns the polling profile for checkout flows where the
// user is watching the screen: few attempts, short deadline.
func InteractiveConfig() Config {
	return Config{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		Deadline:     defaultDeadline,
	}
}

// ResumeConfig returns the polling profile for background flows, e.g. the
// user returning to the app after leaving to pay a PIX charge. Nobody is
// actively waiting, so attempts and deadline stretch out.
func ResumeConfig() Config {
	return Config{
		MaxAttempts:  20,
		InitialDelay: 3 * time.Second,
		Deadline:     10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.Deadline <= 0 {
		c.Deadline = defaultDeadline
	}
	return c
}

// Outcome is the verdict of a completed poll.
type Outcome string

const (
	// OutcomeConfirmed means the payment cleared.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeFailed means the payment reached a terminal non-success status
	// (overdue, refunded or canceled). These states do not self-heal.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnknown means the attempt budget or deadline ran out while the
	// payment was still pending. The payment may yet confirm asynchronously;
	// this is explicitly not a confirmed failure.
	OutcomeUnknown Outcome = "unknown"
)

// Result describes how a poll ended.
type Result struct {
	Outcome  Outcome
	Payment  *gateway.PaymentAttempt // last successful observation, nil if every attempt was unreachable
	Attempts int                     // getPayment calls consumed
	LastErr  error                   // last transient error, set when unreachable attempts were part of the run
}

// PaymentFetcher is the slice of the gateway client the poller needs.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error)
}

// Poller drives a payment identifier to a terminal status without
// busy-looping or polling forever.
type Poller struct {
	payments PaymentFetcher
	cfg      Config
	backoff  BackoffStrategy
	log      *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithBackoff overrides the default linear backoff strategy.
func WithBackoff(strategy BackoffStrategy) Option {
	return func(p *Poller) {
		if strategy != nil {
			p.backoff = strategy
		}
	}
}

// WithLogger attaches a structured logger for per-attempt diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Poller. Panics if payments is nil to fail fast during
// initialization.
func New(payments PaymentFetcher, cfg Config, opts ...Option) *Poller {
	if payments == nil {
		panic("poller: PaymentFetcher is required")
	}

	cfg = cfg.withDefaults()
	p := &Poller{
		payments: payments,
		cfg:      cfg,
		backoff:  LinearBackoff{Interval: cfg.InitialDelay},
		log:      slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll queries the payment until it reaches a terminal status, the attempt
// budget is spent, or the deadline passes. Terminal statuses return on the
// first observation. Unreachable gateway errors consume the attempt budget
// and are retried after the backoff delay; all other gateway errors propagate
// immediately.
//
// Cancelling ctx aborts the poll: no further getPayment calls are made and
// no Result is reported, only ctx's error.
func (p *Poller) Poll(ctx context.Context, paymentID string) (*Result, error) {
	deadline := time.NewTimer(p.cfg.Deadline)
	defer deadline.Stop()

	result := &Result{Outcome: OutcomeUnknown}

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payment, err := p.payments.GetPayment(ctx, paymentID)
		result.Attempts = attempt

		switch {
		case err == nil:
			result.Payment = payment
			result.LastErr = nil

			if payment.Status.IsTerminal() {
				if payment.Status == gateway.PaymentConfirmed {
					result.Outcome = OutcomeConfirmed
				} else {
					result.Outcome = OutcomeFailed
				}
				p.log.InfoContext(ctx, "payment reached terminal status",
					slog.String("payment_id", paymentID),
					slog.String("status", string(payment.Status)),
					slog.Int("attempts", attempt),
				)
				return result, nil
			}

		case gateway.IsUnreachable(err):
			// Transient; the attempt is spent but the loop continues.
			result.LastErr = err
			p.log.WarnContext(ctx, "payment status check unreachable",
				slog.String("payment_id", paymentID),
				slog.Int("attempt", attempt),
			)

		default:
			return nil, err
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}

		wait := time.NewTimer(p.backoff.NextInterval(attempt))
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil, ctx.Err()
		case <-deadline.C:
			wait.Stop()
			p.log.InfoContext(ctx, "payment poll deadline reached",
				slog.String("payment_id", paymentID),
				slog.Int("attempts", attempt),
			)
			return result, nil
		case <-wait.C:
		}
	}

	p.log.InfoContext(ctx, "payment poll attempts exhausted",
		slog.String("payment_id", paymentID),
		slog.Int("attempts", result.Attempts),
	)
	return result, nil
}
