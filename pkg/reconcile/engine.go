package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/billingkit/billingkit/pkg/gateway"
	"github.com/billingkit/billingkit/pkg/poller"
	"github.com/billingkit/billingkit/pkg/statestore"
)

// Engine drives a user's checkout from intent to a single authoritative
// outcome, reconciling gateway truth against the local cache.
type Engine struct {
	plans     map[string]Plan
	gw        gateway.Client
	store     statestore.Store
	pollCfg   poller.Config
	resumeCfg poller.Config
	staleness time.Duration
	log       *slog.Logger

	// group serializes concurrent Subscribe calls per user: a second call
	// while one is in flight joins the existing run instead of creating a
	// duplicate subscription at the gateway.
	group singleflight.Group
}

// New creates an Engine. Panics if required dependencies are nil to fail fast
// during initialization.
func New(ctx context.Context, src PlansSource, gw gateway.Client, store statestore.Store, opts ...Option) (*Engine, error) {
	if src == nil {
		panic("reconcile: PlansSource is required")
	}
	if gw == nil {
		panic("reconcile: gateway.Client is required")
	}
	if store == nil {
		panic("reconcile: statestore.Store is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	e := &Engine{
		plans:     plans,
		gw:        gw,
		store:     store,
		pollCfg:   poller.InteractiveConfig(),
		resumeCfg: poller.ResumeConfig(),
		staleness: statestore.DefaultStalenessThreshold,
		log:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Subscribe runs the full checkout reconciliation for a user and plan:
// ensure a gateway customer exists, create the subscription and its first
// payment, poll the payment to a terminal status, and fold everything into
// one Result.
//
// A missing tax ID suspends the run with ErrNeedsTaxID; the caller prompts
// the user and re-invokes. Concurrent calls for the same user coalesce onto
// one in-flight run, so the gateway sees at most one CreateSubscription.
func (e *Engine) Subscribe(ctx context.Context, user User, planID string, method gateway.BillingMethod) (*Result, error) {
	v, err, shared := e.group.Do(user.ID.String(), func() (any, error) {
		return e.subscribe(ctx, user, planID, method)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.log.InfoContext(ctx, "subscribe joined in-flight run",
			slog.String("user_id", user.ID.String()),
			slog.String("plan_id", planID),
		)
	}
	return v.(*Result), nil
}

func (e *Engine) subscribe(ctx context.Context, user User, planID string, method gateway.BillingMethod) (*Result, error) {
	plan, ok := e.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	if !plan.AllowsMethod(method) {
		return nil, ErrBillingMethodNotAllowed
	}

	m := newMachine()

	// Absent tax ID is a recoverable precondition, not an error path. The
	// run suspends before touching the gateway.
	if user.CustomerID == "" && user.TaxID == "" {
		return nil, ErrNeedsTaxID
	}

	m.mustAdvance(StateCustomerPending)
	customerID, err := e.ensureCustomer(ctx, user)
	if err != nil {
		if resolvesToNeedsTaxID(err) {
			return nil, ErrNeedsTaxID
		}
		return e.terminalFromError(ctx, m, user.ID, err), nil
	}

	m.mustAdvance(StateSubscriptionPending)
	created, err := e.gw.CreateSubscription(ctx, gateway.SubscriptionIntent{
		PlanID:        plan.ID,
		UserID:        user.ID,
		CustomerID:    customerID,
		BillingMethod: method,
		Value:         plan.Price,
	})
	if err != nil {
		// The gateway tends to reject a missing tax ID here rather than at
		// customer time; that rejection is the same suspension point.
		if resolvesToNeedsTaxID(err) {
			return nil, ErrNeedsTaxID
		}
		return e.terminalFromError(ctx, m, user.ID, err), nil
	}

	e.log.InfoContext(ctx, "subscription created",
		slog.String("user_id", user.ID.String()),
		slog.String("subscription_id", created.SubscriptionID),
		slog.String("payment_id", created.PaymentID),
	)

	m.mustAdvance(StateAwaitingPayment)
	if created.PaymentID == "" {
		// Subscription exists but the gateway has not opened the first
		// charge yet. Verifiable, unambiguous, just not payable yet.
		return e.pendingResult(ctx, m, user.ID, created.SubscriptionID, nil), nil
	}

	cfg := e.pollCfg
	if method == gateway.BillingMethodBoleto {
		// Boleto never clears while the user waits; one observation is enough.
		cfg.MaxAttempts = 1
	}

	pollRes, err := e.pollPayment(ctx, cfg, created.PaymentID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return e.terminalFromError(ctx, m, user.ID, err), nil
	}

	switch pollRes.Outcome {
	case poller.OutcomeConfirmed:
		return e.activate(ctx, m, user.ID, plan.ID, method, created.SubscriptionID), nil

	case poller.OutcomeFailed:
		m.mustAdvance(StateFailed)
		return &Result{
			Outcome:   OutcomeFailed,
			LastKnown: e.lastKnown(ctx, user.ID),
			Diagnostic: &Diagnostic{
				State:   StateFailed,
				Message: "payment reached terminal status " + string(pollRes.Payment.Status),
			},
		}, nil

	default:
		// Budget or deadline exhausted while still pending. For boleto the
		// charge legitimately sits pending for days, so an observed pending
		// payment is a Pending outcome, not an ambiguous one.
		if method == gateway.BillingMethodBoleto && pollRes.Payment != nil {
			return e.pendingResult(ctx, m, user.ID, created.SubscriptionID, pollRes.Payment), nil
		}

		m.mustAdvance(StateUnknown)
		diag := &Diagnostic{State: StateUnknown, Message: "payment still pending after polling"}
		if pollRes.LastErr != nil {
			diag.ErrorKind = gateway.KindUnreachable
			diag.Message = "gateway unreachable while polling payment"
		}
		return &Result{
			Outcome:    OutcomeUnknown,
			LastKnown:  e.lastKnown(ctx, user.ID),
			Diagnostic: diag,
		}, nil
	}
}

// PollExisting reconciles an already-created subscription, typically when the
// user returns to the app after leaving to pay. It uses the longer resume
// polling profile since nobody is actively waiting.
func (e *Engine) PollExisting(ctx context.Context, userID uuid.UUID, subscriptionID string) (*Result, error) {
	m := newMachine()
	m.mustAdvance(StateCustomerPending)
	m.mustAdvance(StateSubscriptionPending)

	record, err := e.gw.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return e.terminalFromError(ctx, m, userID, err), nil
	}
	record.UserID = userID

	m.mustAdvance(StateAwaitingPayment)

	switch record.Status {
	case gateway.SubscriptionActive:
		return e.activateWithRecord(ctx, m, userID, record), nil

	case gateway.SubscriptionCanceled:
		m.mustAdvance(StateFailed)
		return &Result{
			Outcome:      OutcomeFailed,
			Subscription: record,
			LastKnown:    e.lastKnown(ctx, userID),
			Diagnostic:   &Diagnostic{State: StateFailed, Message: "subscription canceled at gateway"},
		}, nil
	}

	// Pending, overdue or unknown at the gateway: the latest payment attempt
	// decides.
	payments, err := e.gw.ListPayments(ctx, subscriptionID, 1)
	if err != nil {
		return e.terminalFromError(ctx, m, userID, err), nil
	}
	if len(payments) == 0 {
		return e.pendingResult(ctx, m, userID, subscriptionID, nil), nil
	}

	latest := payments[0]
	switch {
	case latest.Status == gateway.PaymentConfirmed:
		// The charge cleared but the subscription still reads pending: the
		// gateway-to-backend notification was lost. The payment is the
		// stronger evidence.
		return e.activateWithRecord(ctx, m, userID, record), nil

	case latest.Status.IsTerminal():
		m.mustAdvance(StateFailed)
		return &Result{
			Outcome:      OutcomeFailed,
			Subscription: record,
			LastKnown:    e.lastKnown(ctx, userID),
			Diagnostic: &Diagnostic{
				State:   StateFailed,
				Message: "latest payment reached terminal status " + string(latest.Status),
			},
		}, nil
	}

	pollRes, err := e.pollPayment(ctx, e.resumeCfg, latest.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return e.terminalFromError(ctx, m, userID, err), nil
	}

	switch pollRes.Outcome {
	case poller.OutcomeConfirmed:
		return e.activateWithRecord(ctx, m, userID, record), nil

	case poller.OutcomeFailed:
		m.mustAdvance(StateFailed)
		return &Result{
			Outcome:      OutcomeFailed,
			Subscription: record,
			LastKnown:    e.lastKnown(ctx, userID),
			Diagnostic: &Diagnostic{
				State:   StateFailed,
				Message: "payment reached terminal status " + string(pollRes.Payment.Status),
			},
		}, nil

	default:
		// The subscription verifiably exists and its payment has not
		// failed; that is Pending, not ambiguity.
		return e.pendingResult(ctx, m, userID, subscriptionID, pollRes.Payment), nil
	}
}

// CurrentSubscription exposes the cached record as a read model for UI
// collaborators, annotated with an explicit staleness verdict.
func (e *Engine) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*statestore.Snapshot, error) {
	record, err := e.store.Read(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := statestore.SnapshotAt(record, time.Now().UTC(), e.staleness)
	return &snap, nil
}

// ensureCustomer resolves the gateway customer ID, creating the customer when
// absent and supplying a late tax ID when the gateway record lacks one.
func (e *Engine) ensureCustomer(ctx context.Context, user User) (string, error) {
	if user.CustomerID == "" {
		customer, err := e.gw.CreateCustomer(ctx, gateway.CreateCustomerInput{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			TaxID:  user.TaxID,
		})
		if err != nil {
			return "", err
		}
		e.log.InfoContext(ctx, "gateway customer created",
			slog.String("user_id", user.ID.String()),
			slog.String("customer_id", customer.ID),
		)
		return customer.ID, nil
	}

	if user.TaxID != "" {
		customer, err := e.gw.GetCustomer(ctx, user.CustomerID)
		if err == nil && !customer.HasTaxID() {
			if _, err := e.gw.UpdateCustomer(ctx, user.CustomerID, gateway.UpdateCustomerInput{
				TaxID: user.TaxID,
			}); err != nil {
				return "", err
			}
			e.log.InfoContext(ctx, "customer tax ID supplied late",
				slog.String("user_id", user.ID.String()),
				slog.String("customer_id", user.CustomerID),
			)
		}
		// A failed read is not fatal here: subscription creation surfaces
		// any remaining problem with a classified error.
	}

	return user.CustomerID, nil
}

func (e *Engine) pollPayment(ctx context.Context, cfg poller.Config, paymentID string) (*poller.Result, error) {
	p := poller.New(e.gw, cfg, poller.WithLogger(e.log))
	return p.Poll(ctx, paymentID)
}

// activate fetches the authoritative record (synthesizing one from the
// intent when the confirming read fails) and writes it to the cache.
func (e *Engine) activate(ctx context.Context, m *machine, userID uuid.UUID, planID string, method gateway.BillingMethod, subscriptionID string) *Result {
	record, err := e.gw.GetSubscription(ctx, subscriptionID)
	if err != nil {
		// Payment is confirmed; the outcome stands even if the follow-up
		// read failed. Build the record from what this run established.
		record = &gateway.SubscriptionRecord{
			ID:            subscriptionID,
			UserID:        userID,
			PlanID:        planID,
			PaymentMethod: method,
			StartDate:     time.Now().UTC(),
		}
	}
	record.UserID = userID
	record.Status = gateway.SubscriptionActive
	if record.PlanID == "" {
		record.PlanID = planID
	}

	return e.activateWithRecord(ctx, m, userID, record)
}

// activateWithRecord marks the run Active and mirrors the record locally.
// Only Active runs write the cache.
func (e *Engine) activateWithRecord(ctx context.Context, m *machine, userID uuid.UUID, record *gateway.SubscriptionRecord) *Result {
	m.mustAdvance(StateActive)

	record.UserID = userID
	record.Status = gateway.SubscriptionActive

	cached := &statestore.Record{
		Subscription: *record,
		Source:       statestore.SourceGateway,
		SyncedAt:     time.Now().UTC(),
	}
	if err := e.store.Write(ctx, userID, cached); err != nil {
		// The subscription is active at the gateway regardless; a cache
		// write failure must not fail the checkout.
		e.log.ErrorContext(ctx, "failed to cache activated subscription",
			slog.String("user_id", userID.String()),
			slog.String("subscription_id", record.ID),
			slog.Any("error", err),
		)
	}

	e.log.InfoContext(ctx, "subscription active",
		slog.String("user_id", userID.String()),
		slog.String("subscription_id", record.ID),
	)

	return &Result{Outcome: OutcomeActive, Subscription: record}
}

// pendingResult marks the run Pending: the subscription exists at the
// gateway and awaits payment. The cache stays untouched.
func (e *Engine) pendingResult(ctx context.Context, m *machine, userID uuid.UUID, subscriptionID string, payment *gateway.PaymentAttempt) *Result {
	m.mustAdvance(StatePending)

	diag := &Diagnostic{State: StatePending, Message: "awaiting payment for subscription " + subscriptionID}
	if payment != nil {
		diag.Message = "awaiting payment " + payment.ID
	}

	return &Result{
		Outcome:    OutcomePending,
		Diagnostic: diag,
	}
}

// terminalFromError maps a classified gateway error to the correct terminal
// outcome. Unreachable and not-found evidence is ambiguous (the call may
// have taken effect, or the linkage is broken) and maps to Unknown;
// validation and business-rule rejections are definitive failures.
func (e *Engine) terminalFromError(ctx context.Context, m *machine, userID uuid.UUID, err error) *Result {
	diag := &Diagnostic{
		ReasonCode: gateway.ReasonCode(err),
		Message:    err.Error(),
	}

	outcome := OutcomeUnknown
	state := StateUnknown
	switch {
	case gateway.IsValidation(err):
		outcome, state = OutcomeFailed, StateFailed
		diag.ErrorKind = gateway.KindValidation
	case gateway.IsRejected(err):
		outcome, state = OutcomeFailed, StateFailed
		diag.ErrorKind = gateway.KindRejected
	case gateway.IsNotFound(err):
		diag.ErrorKind = gateway.KindNotFound
	case gateway.IsUnreachable(err):
		diag.ErrorKind = gateway.KindUnreachable
	}

	m.mustAdvance(state)
	diag.State = state

	e.log.WarnContext(ctx, "reconciliation ended without activation",
		slog.String("user_id", userID.String()),
		slog.String("outcome", string(outcome)),
		slog.String("reason_code", diag.ReasonCode),
	)

	return &Result{
		Outcome:    outcome,
		LastKnown:  e.lastKnown(ctx, userID),
		Diagnostic: diag,
	}
}

// lastKnown reads the cached record for advisory context. Failures are
// swallowed: advisory context must never break a reconciliation result.
func (e *Engine) lastKnown(ctx context.Context, userID uuid.UUID) *statestore.Record {
	record, err := e.store.Read(ctx, userID)
	if err != nil {
		return nil
	}
	return record
}

// resolvesToNeedsTaxID inspects a gateway rejection's reason code for the
// missing-tax-ID family.
func resolvesToNeedsTaxID(err error) bool {
	if !gateway.IsRejected(err) {
		return false
	}
	switch gateway.ReasonCode(err) {
	case "missing_cpf", "missing_cpfCnpj", "missing_cpf_cnpj", "missing_tax_id":
		return true
	}
	return false
}
