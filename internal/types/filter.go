package types

import (
	"time"
)

// InvoiceFilter narrows invoice listings. Zero values mean "any".
type InvoiceFilter struct {
	SubscriptionID string
	CustomerID     string
	BillingPeriod  BillingPeriod
	Statuses       []InvoiceStatus
	// DueBefore keeps invoices whose due date is strictly before the given day
	DueBefore *time.Time
	Limit     int
}

// SubscriptionFilter narrows subscription listings
type SubscriptionFilter struct {
	CustomerID string
	PlanID     string
	Statuses   []SubscriptionStatus
}
