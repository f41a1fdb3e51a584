package invoice

import (
	"context"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the billable record of one subscription for one billing period
type Invoice struct {
	ID             string              `db:"id" json:"id"`
	Sequence       int64               `db:"sequence" json:"sequence"`
	SubscriptionID string              `db:"subscription_id" json:"subscription_id"`
	CustomerID     string              `db:"customer_id" json:"customer_id"`
	BillingPeriod  types.BillingPeriod `db:"billing_period" json:"billing_period"`
	IssueDate      time.Time           `db:"issue_date" json:"issue_date"`
	DueDate        time.Time           `db:"due_date" json:"due_date"`
	BaseAmount     decimal.Decimal     `db:"base_amount" json:"base_amount"`
	LateFee        decimal.Decimal     `db:"late_fee" json:"late_fee"`
	TotalAmount    decimal.Decimal     `db:"total_amount" json:"total_amount"`
	Status         types.InvoiceStatus `db:"status" json:"status"`
	ReceiptRef     *string             `db:"receipt_ref" json:"receipt_ref,omitempty"`
	ProofRef       *string             `db:"proof_ref" json:"proof_ref,omitempty"`
	PaidAt         *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	IdempotencyKey *string             `db:"idempotency_key" json:"-"`

	types.BaseModel
}

// New builds a pending invoice for a billing period. Base and total start at the plan price.
func New(ctx context.Context, subscriptionID, customerID string, period types.BillingPeriod, issueDate time.Time, paymentWindowDays int, price decimal.Decimal) *Invoice {
	issue := types.NormalizeDay(issueDate)
	return &Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
		BillingPeriod:  period,
		IssueDate:      issue,
		DueDate:        types.AddDays(issue, paymentWindowDays),
		BaseAmount:     price,
		LateFee:        decimal.Zero,
		TotalAmount:    price,
		Status:         types.InvoiceStatusPending,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// HasLateFee reports whether the one-time late fee was already charged
func (i *Invoice) HasLateFee() bool {
	return !i.LateFee.IsZero()
}

// IsOverdue reports whether the invoice is still open strictly after its due date
func (i *Invoice) IsOverdue(today time.Time) bool {
	return i.Status == types.InvoiceStatusPending && i.DueDate.Before(types.NormalizeDay(today))
}

// DaysOverdue is the number of calendar days since the due date, zero when not yet due
func (i *Invoice) DaysOverdue(today time.Time) int {
	days := types.DaysBetween(i.DueDate, today)
	if days < 0 {
		return 0
	}
	return days
}

func (i *Invoice) GetReceiptRef() string {
	if i.ReceiptRef == nil {
		return ""
	}
	return *i.ReceiptRef
}

// Validate checks the amount invariants of the invoice
func (i *Invoice) Validate() error {
	if err := i.BillingPeriod.Validate(); err != nil {
		return err
	}
	if err := i.Status.Validate(); err != nil {
		return err
	}
	if i.BaseAmount.IsNegative() {
		return ierr.NewError("base amount must not be negative").
			WithHint("Plan price must be zero or positive").
			WithReportableDetails(map[string]any{
				"base_amount": i.BaseAmount,
			}).
			Mark(ierr.ErrValidation)
	}
	if i.LateFee.IsNegative() {
		return ierr.NewError("late fee must not be negative").
			WithHint("Late fee must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if !i.TotalAmount.Equal(i.BaseAmount.Add(i.LateFee)) {
		return ierr.NewError("total amount must equal base amount plus late fee").
			WithHint("Invoice amounts are inconsistent").
			WithReportableDetails(map[string]any{
				"base_amount":  i.BaseAmount,
				"late_fee":     i.LateFee,
				"total_amount": i.TotalAmount,
			}).
			Mark(ierr.ErrValidation)
	}
	if i.DueDate.Before(i.IssueDate) {
		return ierr.NewError("due date must not precede issue date").
			WithHint("Payment window must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}
