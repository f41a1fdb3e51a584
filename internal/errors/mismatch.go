package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountMismatchError carries both sides of a rejected payment so callers
// can render the exact amount that is owed.
type AmountMismatchError struct {
	InvoiceID string
	Required  decimal.Decimal
	Received  decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("%s: invoice %s requires %s, received %s",
		ErrCodeAmountMismatch, e.InvoiceID, e.Required.StringFixed(2), e.Received.StringFixed(2))
}

// Is makes the typed error match the ErrAmountMismatch sentinel
func (e *AmountMismatchError) Is(target error) bool {
	t, ok := target.(*InternalError)
	return ok && t.Code == ErrCodeAmountMismatch
}

// NewAmountMismatch builds the typed mismatch error with an operator hint
func NewAmountMismatch(invoiceID string, required, received decimal.Decimal) error {
	return WithError(&AmountMismatchError{
		InvoiceID: invoiceID,
		Required:  required,
		Received:  received,
	}).
		WithHintf("The amount to pay is %s, received %s", required.StringFixed(2), received.StringFixed(2)).
		WithReportableDetails(map[string]any{
			"invoice_id": invoiceID,
			"required":   required.String(),
			"received":   received.String(),
		}).
		Mark(ErrAmountMismatch)
}
