package subscription

import (
	"context"
	"time"
)

// Repository is the subscription ledger consumed by the billing core
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)

	// ListActiveWithPlan returns every active subscription with its current plan price
	ListActiveWithPlan(ctx context.Context) ([]*WithPlan, error)

	// GetByCustomerAndPlan resolves the subscription a payment for (customer, plan) belongs to.
	// Non-cancelled subscriptions win over cancelled ones, newer over older.
	GetByCustomerAndPlan(ctx context.Context, customerID, planID string) (*Subscription, error)

	// Suspend moves an active subscription to suspended.
	// It reports false without error when the subscription was not active.
	Suspend(ctx context.Context, id string, at time.Time) (bool, error)
}
