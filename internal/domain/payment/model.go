package payment

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Payment records one successful settlement of an invoice. It is immutable once the
// reconciliation transaction commits.
type Payment struct {
	ID             string              `db:"id" json:"id"`
	InvoiceID      string              `db:"invoice_id" json:"invoice_id"`
	SubscriptionID string              `db:"subscription_id" json:"subscription_id"`
	CustomerID     string              `db:"customer_id" json:"customer_id"`
	Amount         decimal.Decimal     `db:"amount" json:"amount"`
	Method         types.PaymentMethod `db:"method" json:"method"`
	PaidAt         time.Time           `db:"paid_at" json:"paid_at"`
	ReceiptNumber  string              `db:"receipt_number" json:"receipt_number"`
	ReceiptRef     *string             `db:"receipt_ref" json:"receipt_ref,omitempty"`

	types.BaseModel
}

// New builds a payment for an invoice paid at paidAt
func New(ctx context.Context, invoiceID, subscriptionID, customerID string, amount decimal.Decimal, method types.PaymentMethod, paidAt time.Time) *Payment {
	return &Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:      invoiceID,
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
		Amount:         amount,
		Method:         method.Normalize(),
		PaidAt:         paidAt.UTC(),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}
