package testutil

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/subscription"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	plans plan.Repository
}

// NewInMemorySubscriptionStore creates a store that joins plan prices from plans
func NewInMemorySubscriptionStore(plans plan.Repository) *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		plans:         plans,
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	cp := *sub
	return s.InMemoryStore.Create(ctx, sub.ID, &cp)
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Subscription %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemorySubscriptionStore) ListActiveWithPlan(ctx context.Context) ([]*subscription.WithPlan, error) {
	subs, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
			return sub.IsActive()
		},
		func(a, b *subscription.Subscription) bool {
			if a.StartDate.Equal(b.StartDate) {
				return a.ID < b.ID
			}
			return a.StartDate.Before(b.StartDate)
		})
	if err != nil {
		return nil, err
	}

	out := make([]*subscription.WithPlan, 0, len(subs))
	for _, sub := range subs {
		p, err := s.plans.Get(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
		out = append(out, &subscription.WithPlan{Subscription: *sub, PlanPrice: p.Price})
	}
	return out, nil
}

func (s *InMemorySubscriptionStore) GetByCustomerAndPlan(ctx context.Context, customerID, planID string) (*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
			return sub.CustomerID == customerID && sub.PlanID == planID
		},
		func(a, b *subscription.Subscription) bool {
			ac, bc := a.Status == types.SubscriptionStatusCancelled, b.Status == types.SubscriptionStatusCancelled
			if ac != bc {
				return !ac
			}
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.After(b.StartDate)
			}
			return a.CreatedAt.After(b.CreatedAt)
		})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHint("No subscription found for this customer and plan").
			WithReportableDetails(map[string]any{
				"customer_id": customerID,
				"plan_id":     planID,
			}).
			Mark(ierr.ErrNotFound)
	}
	cp := *lo.FirstOrEmpty(subs)
	return &cp, nil
}

func (s *InMemorySubscriptionStore) Suspend(ctx context.Context, id string, at time.Time) (bool, error) {
	changed, err := s.InMemoryStore.Mutate(id, func(sub *subscription.Subscription) (*subscription.Subscription, bool) {
		if !sub.IsActive() {
			return sub, false
		}
		cp := *sub
		cp.Status = types.SubscriptionStatusSuspended
		cp.SuspendedAt = lo.ToPtr(at)
		cp.UpdatedAt = time.Now().UTC()
		cp.UpdatedBy = types.GetUserID(ctx)
		return &cp, true
	})
	if ierr.IsNotFound(err) {
		return false, nil
	}
	return changed, err
}
