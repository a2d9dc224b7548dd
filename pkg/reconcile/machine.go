package reconcile

import "fmt"

// State identifies a reconciliation run's position in its lifecycle.
type State string

const (
	StateInit                State = "init"
	StateCustomerPending     State = "customer_pending"
	StateSubscriptionPending State = "subscription_pending"
	StateAwaitingPayment     State = "awaiting_payment"

	// Terminal states, one per outcome.
	StateActive  State = "active"
	StatePending State = "pending"
	StateFailed  State = "failed"
	StateUnknown State = "unknown"
)

// IsTerminal reports whether the run is finished.
func (s State) IsTerminal() bool {
	switch s {
	case StateActive, StatePending, StateFailed, StateUnknown:
		return true
	}
	return false
}

// transitions is the legal state graph. Failure states are reachable from
// every non-terminal state (an unrecoverable rejection can surface at any
// step); the forward path is strictly linear because each step depends on the
// previous step's result.
var transitions = map[State][]State{
	StateInit:                {StateCustomerPending, StateFailed, StateUnknown},
	StateCustomerPending:     {StateSubscriptionPending, StateFailed, StateUnknown},
	StateSubscriptionPending: {StateAwaitingPayment, StateFailed, StateUnknown},
	StateAwaitingPayment:     {StateActive, StatePending, StateFailed, StateUnknown},
}

// machine validates and records the progress of a single reconciliation run.
// Runs are single-goroutine, so no locking.
type machine struct {
	current State
	path    []State
}

func newMachine() *machine {
	return &machine{
		current: StateInit,
		path:    []State{StateInit},
	}
}

// advance moves the run to the next state, rejecting transitions the graph
// does not allow. A rejected advance is a programming error in the engine,
// not a runtime condition.
func (m *machine) advance(to State) error {
	for _, allowed := range transitions[m.current] {
		if allowed == to {
			m.current = to
			m.path = append(m.path, to)
			return nil
		}
	}
	return fmt.Errorf("reconcile: illegal transition %s -> %s", m.current, to)
}

// mustAdvance panics on an illegal transition. Used inside the engine where
// the state graph is driven by code, not input.
func (m *machine) mustAdvance(to State) {
	if err := m.advance(to); err != nil {
		panic(err)
	}
}
