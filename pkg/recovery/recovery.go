package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/billingkit/billingkit/pkg/gateway"
	"github.com/billingkit/billingkit/pkg/statestore"
)

// Service bundles the operator-driven recovery actions for subscriptions
// whose local mirror drifted from gateway truth.
type Service struct {
	gw    gateway.Client
	store statestore.Store
	log   *slog.Logger
}

// Option configures optional service settings.
type Option func(*Service)

// WithLogger attaches a structured logger. Recovery actions are operator
// interventions and should be logged somewhere durable.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a recovery Service. Panics if required dependencies are nil to
// fail fast during initialization.
func New(gw gateway.Client, store statestore.Store, opts ...Option) *Service {
	if gw == nil {
		panic("recovery: gateway.Client is required")
	}
	if store == nil {
		panic("recovery: statestore.Store is required")
	}

	s := &Service{
		gw:    gw,
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resync replaces the local mirror with a fresh gateway read. When the
// subscription no longer exists at the gateway the stale mirror is cleared
// and the not-found error is returned, so callers can tell "gone" apart from
// "unreachable".
func (s *Service) Resync(ctx context.Context, userID uuid.UUID, subscriptionID string) (*statestore.Record, error) {
	sub, err := s.gw.GetSubscription(ctx, subscriptionID)
	if err != nil {
		if gateway.IsNotFound(err) {
			if clearErr := s.store.Clear(ctx, userID); clearErr != nil {
				s.log.ErrorContext(ctx, "failed to clear mirror of missing subscription",
					slog.String("user_id", userID.String()),
					slog.String("subscription_id", subscriptionID),
					slog.Any("error", clearErr),
				)
			}
		}
		return nil, err
	}
	sub.UserID = userID

	record := &statestore.Record{
		Subscription: *sub,
		Source:       statestore.SourceGateway,
		SyncedAt:     time.Now().UTC(),
	}
	if err := s.store.Write(ctx, userID, record); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription mirror resynced",
		slog.String("user_id", userID.String()),
		slog.String("subscription_id", subscriptionID),
		slog.String("status", string(sub.Status)),
	)
	return record, nil
}

// Rebuild reconstructs the mirror from identifiers obtained out-of-band (a
// support ticket, an old log line), for the case where the local link between
// user and subscription was lost but the gateway still has valid objects. It
// combines a payment lookup with a subscription lookup and force-writes the
// result; the mirror reads Active only when the payment is Confirmed (or the
// subscription already is).
//
// ErrPaymentMismatch is returned when the payment does not belong to the
// subscription, since writing a mirror from unrelated objects would recreate
// the very drift being repaired.
func (s *Service) Rebuild(ctx context.Context, userID uuid.UUID, subscriptionID, paymentID string) (*statestore.Record, error) {
	payment, err := s.gw.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.SubscriptionID != "" && payment.SubscriptionID != subscriptionID {
		return nil, ErrPaymentMismatch
	}

	sub, err := s.gw.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	sub.UserID = userID

	if payment.Status == gateway.PaymentConfirmed {
		sub.Status = gateway.SubscriptionActive
	}

	record := &statestore.Record{
		Subscription: *sub,
		Source:       statestore.SourceGateway,
		SyncedAt:     time.Now().UTC(),
	}
	if err := s.store.Write(ctx, userID, record); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription mirror rebuilt",
		slog.String("user_id", userID.String()),
		slog.String("subscription_id", subscriptionID),
		slog.String("payment_id", paymentID),
		slog.String("status", string(sub.Status)),
	)
	return record, nil
}

// ForceActivate writes an active mirror on an operator's say-so, without any
// gateway read. The record is marked SourceForced so audits can always tell
// it apart from gateway-backed state, and the write is logged at Warn with
// activation=forced.
//
// This is the escape hatch for a paying user locked out by gateway drift; a
// later Resync or reconciliation run overwrites it with real state.
func (s *Service) ForceActivate(ctx context.Context, userID uuid.UUID, planID string) (*statestore.Record, error) {
	record := &statestore.Record{
		Subscription: gateway.SubscriptionRecord{
			UserID:    userID,
			PlanID:    planID,
			Status:    gateway.SubscriptionActive,
			StartDate: time.Now().UTC(),
		},
		Source:   statestore.SourceForced,
		SyncedAt: time.Now().UTC(),
	}
	if err := s.store.Write(ctx, userID, record); err != nil {
		return nil, err
	}

	s.log.WarnContext(ctx, "subscription force-activated without gateway confirmation",
		slog.String("activation", "forced"),
		slog.String("user_id", userID.String()),
		slog.String("plan_id", planID),
	)
	return record, nil
}
