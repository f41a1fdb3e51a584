package subscription

import (
	"time"

	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription binds a customer to a plan
type Subscription struct {
	ID         string                   `db:"id" json:"id"`
	CustomerID string                   `db:"customer_id" json:"customer_id"`
	PlanID     string                   `db:"plan_id" json:"plan_id"`
	Status     types.SubscriptionStatus `db:"status" json:"status"`
	StartDate  time.Time                `db:"start_date" json:"start_date"`

	// SuspendedAt is set when overdue processing suspends the service
	SuspendedAt *time.Time `db:"suspended_at" json:"suspended_at,omitempty"`

	types.BaseModel
}

func (s *Subscription) IsActive() bool {
	return s.Status == types.SubscriptionStatusActive
}

// WithPlan is an active subscription joined with the price of its plan
type WithPlan struct {
	Subscription
	PlanPrice decimal.Decimal `db:"plan_price" json:"plan_price"`
}
