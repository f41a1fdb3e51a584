package types

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the service state of a customer subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Please provide a valid subscription status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceStatus tracks an invoice through the payment state machine:
// pending -> paid, pending -> in_review -> paid | pending, pending -> cancelled
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusInReview  InvoiceStatus = "in_review"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusPending,
		InvoiceStatusInReview,
		InvoiceStatusPaid,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// invoiceTransitions lists the statuses reachable from each status
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:  {InvoiceStatusPaid, InvoiceStatusInReview, InvoiceStatusCancelled},
	InvoiceStatusInReview: {InvoiceStatusPaid, InvoiceStatusPending, InvoiceStatusCancelled},
}

// CanTransitionTo reports whether the invoice state machine allows s -> next
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	return lo.Contains(invoiceTransitions[s], next)
}

// IsTerminal reports whether no transition leaves s
func (s InvoiceStatus) IsTerminal() bool {
	return len(invoiceTransitions[s]) == 0
}
