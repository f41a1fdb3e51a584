package types

import (
	"strings"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/samber/lo"
)

// PaymentMethod is how the customer settled an invoice
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOther        PaymentMethod = "other"
)

var allowedPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodBankTransfer,
	PaymentMethodCard,
	PaymentMethodOther,
}

func (m PaymentMethod) String() string {
	return string(m)
}

// Normalize lower cases the method so "Cash" and "cash" are the same thing
func (m PaymentMethod) Normalize() PaymentMethod {
	return PaymentMethod(strings.ToLower(strings.TrimSpace(string(m))))
}

func (m PaymentMethod) Validate() error {
	if !lo.Contains(allowedPaymentMethods, m.Normalize()) {
		return ierr.NewError("invalid payment method").
			WithHintf("Payment method %q is not supported", string(m)).
			WithReportableDetails(map[string]any{
				"allowed": allowedPaymentMethods,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
