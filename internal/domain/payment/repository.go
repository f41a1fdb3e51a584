package payment

import (
	"context"
)

// Repository defines the interface for payment persistence
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Payment, error)
	SetReceiptRef(ctx context.Context, id string, receiptRef string) error
}
