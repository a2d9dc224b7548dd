package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/billingkit/billingkit/pkg/gateway"
)

// Plan defines a subscription tier offered at checkout. Plan IDs must match
// the identifiers the gateway knows, since they travel in the subscription
// intent.
type Plan struct {
	ID    string        `yaml:"id"`
	Name  string        `yaml:"name"`
	Price gateway.Money `yaml:"price"`
	// BillingMethods restricts how the plan may be paid. Empty means every
	// method is allowed.
	BillingMethods []gateway.BillingMethod `yaml:"billing_methods"`
}

// AllowsMethod reports whether the plan can be paid with the given method.
func (p Plan) AllowsMethod(method gateway.BillingMethod) bool {
	if len(p.BillingMethods) == 0 {
		return true
	}
	return slices.Contains(p.BillingMethods, method)
}

// PlansSource defines how the plan catalog is loaded into the engine.
type PlansSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// InMemSource serves a fixed plan list, mainly for tests and hard-coded
// catalogs.
type InMemSource struct {
	plans []Plan
}

// NewInMemSource creates a source from a plan list.
func NewInMemSource(plans ...Plan) *InMemSource {
	return &InMemSource{plans: plans}
}

func (s *InMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	out := make(map[string]Plan, len(s.plans))
	for _, p := range s.plans {
		out[p.ID] = p
	}
	return out, nil
}

// YAMLSource loads the plan catalog from a YAML document:
//
//	plans:
//	  - id: plan_pro
//	    name: Pro
//	    price:
//	      amount: 4990
//	      currency: BRL
//	    billing_methods: [PIX, CARD]
type YAMLSource struct {
	r io.Reader
}

// NewYAMLSource creates a source reading from r.
func NewYAMLSource(r io.Reader) *YAMLSource {
	return &YAMLSource{r: r}
}

func (s *YAMLSource) Load(ctx context.Context) (map[string]Plan, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}

	raw, err := io.ReadAll(s.r)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	out := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		out[p.ID] = p
	}
	return out, nil
}

// validatePlans catches catalog misconfiguration at engine construction
// instead of mid-checkout.
func validatePlans(plans map[string]Plan) error {
	for id, plan := range plans {
		if plan.ID == "" || plan.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %q != plan.ID %q", id, plan.ID))
		}
		if plan.Price.Amount < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %q has negative price: %d", id, plan.Price.Amount))
		}
	}
	return nil
}
