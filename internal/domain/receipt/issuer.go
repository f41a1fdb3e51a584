package receipt

import (
	"context"

	"github.com/netbill/netbill/internal/domain/customer"
	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/payment"
)

// Request is everything needed to produce a receipt for a settled invoice
type Request struct {
	Customer      *customer.Customer
	Invoice       *invoice.Invoice
	Payment       *payment.Payment
	ReceiptNumber string
}

// Issuer produces and persists a receipt document and returns an opaque reference to it.
// It is called inside the reconciliation transaction; an error rolls the payment back.
type Issuer interface {
	Issue(ctx context.Context, req *Request) (string, error)
}
