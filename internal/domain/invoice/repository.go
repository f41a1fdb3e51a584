package invoice

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Repository persists invoices. Invoices are never deleted; cancellation is a status.
type Repository interface {
	// Create inserts a new invoice. A second non-cancelled invoice for the same
	// (subscription, billing period) fails with ierr.ErrAlreadyExists.
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// ExistsForPeriod reports whether a non-cancelled invoice exists for the subscription and period
	ExistsForPeriod(ctx context.Context, subscriptionID string, period types.BillingPeriod) (bool, error)

	// ListPendingDueBefore returns pending invoices whose due date is strictly before day
	ListPendingDueBefore(ctx context.Context, day time.Time) ([]*Invoice, error)

	// GetOldestPendingForUpdate returns the earliest issued pending invoice of the
	// subscription and locks it for the surrounding transaction
	GetOldestPendingForUpdate(ctx context.Context, subscriptionID string) (*Invoice, error)

	// GetForUpdate loads an invoice by id and locks it for the surrounding transaction
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// ApplyLateFee charges fee once. It reports false when the invoice already
	// carries a late fee or is no longer pending.
	ApplyLateFee(ctx context.Context, id string, fee decimal.Decimal) (bool, error)

	// TransitionStatus moves the invoice from one status to another only when it is
	// still in from. It reports false when the invoice was not in from.
	TransitionStatus(ctx context.Context, id string, from, to types.InvoiceStatus) (bool, error)

	// MarkPaid moves a pending or in_review invoice to paid with its paid timestamp
	MarkPaid(ctx context.Context, id string, from types.InvoiceStatus, paidAt time.Time) (bool, error)

	SetReceiptRef(ctx context.Context, id string, receiptRef string) error
	SetProofRef(ctx context.Context, id string, proofRef string) error
}
