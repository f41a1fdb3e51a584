package invoice

import (
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

// NewNotFoundError is returned when an invoice lookup has no match
func NewNotFoundError(id string) error {
	return ierr.NewError("invoice not found").
		WithHintf("Invoice %s was not found", id).
		WithReportableDetails(map[string]any{
			"invoice_id": id,
		}).
		Mark(ierr.ErrNotFound)
}

// NewNoPendingInvoiceError is returned when a subscription has nothing left to pay
func NewNoPendingInvoiceError(subscriptionID string) error {
	return ierr.NewError("no pending invoice for subscription").
		WithHint("There is no pending invoice to apply this payment to").
		WithReportableDetails(map[string]any{
			"subscription_id": subscriptionID,
		}).
		Mark(ierr.ErrNotFound)
}

// NewAlreadyPaidError is returned when a paid invoice is asked to take another payment
func NewAlreadyPaidError(id string) error {
	return ierr.NewError("invoice already paid").
		WithHint("This invoice has already been paid").
		WithReportableDetails(map[string]any{
			"invoice_id": id,
		}).
		Mark(ierr.ErrAlreadyPaid)
}

// NewInvalidTransitionError is returned when the status machine forbids a move
func NewInvalidTransitionError(id string, from, to types.InvoiceStatus) error {
	return ierr.NewErrorf("invoice cannot move from %s to %s", from, to).
		WithHintf("Invoice in status %s cannot be moved to %s", from, to).
		WithReportableDetails(map[string]any{
			"invoice_id": id,
			"from":       from,
			"to":         to,
		}).
		Mark(ierr.ErrInvalidOperation)
}
