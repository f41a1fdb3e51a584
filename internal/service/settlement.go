package service

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/payment"
	"github.com/netbill/netbill/internal/domain/receipt"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentResult describes a settled invoice and its receipt
type PaymentResult struct {
	PaymentID     string          `json:"payment_id"`
	InvoiceID     string          `json:"invoice_id"`
	ReceiptNumber string          `json:"receipt_number"`
	ReceiptRef    string          `json:"receipt_ref"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	PaidAt        time.Time       `json:"paid_at"`
}

// settleInvoice records the payment of a locked invoice that is in status from,
// marks it paid and issues the receipt. It must run inside a transaction so a
// receipt failure undoes the payment.
func (p ServiceParams) settleInvoice(ctx context.Context, inv *invoice.Invoice, from types.InvoiceStatus, method types.PaymentMethod) (*PaymentResult, error) {
	paidAt := p.now()

	ok, err := p.InvoiceRepo.MarkPaid(ctx, inv.ID, from, paidAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invoice.NewAlreadyPaidError(inv.ID)
	}

	receiptNumber := invoice.ReceiptNumber(inv.Sequence, paidAt)
	pay := payment.New(ctx, inv.ID, inv.SubscriptionID, inv.CustomerID, inv.TotalAmount, method, paidAt)
	pay.ReceiptNumber = receiptNumber

	if err := p.PaymentRepo.Create(ctx, pay); err != nil {
		return nil, err
	}

	cust, err := p.CustomerRepo.Get(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}

	inv.Status = types.InvoiceStatusPaid
	inv.PaidAt = &paidAt

	receiptRef, err := p.ReceiptIssuer.Issue(ctx, &receipt.Request{
		Customer:      cust,
		Invoice:       inv,
		Payment:       pay,
		ReceiptNumber: receiptNumber,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The receipt could not be generated, the payment was not recorded").
			WithReportableDetails(map[string]any{
				"invoice_id":     inv.ID,
				"receipt_number": receiptNumber,
			}).
			Mark(ierr.ErrReceiptGeneration)
	}

	if err := p.InvoiceRepo.SetReceiptRef(ctx, inv.ID, receiptRef); err != nil {
		p.reportOrphanedReceipt(inv.ID, receiptRef, err)
		return nil, err
	}
	if err := p.PaymentRepo.SetReceiptRef(ctx, pay.ID, receiptRef); err != nil {
		p.reportOrphanedReceipt(inv.ID, receiptRef, err)
		return nil, err
	}

	return &PaymentResult{
		PaymentID:     pay.ID,
		InvoiceID:     inv.ID,
		ReceiptNumber: receiptNumber,
		ReceiptRef:    receiptRef,
		TotalPaid:     pay.Amount,
		PaidAt:        paidAt,
	}, nil
}

// reportOrphanedReceipt records a stored receipt whose payment was rolled back.
// The key is derived from the payment year and invoice sequence, so paying the
// invoice again in the same year overwrites it.
func (p ServiceParams) reportOrphanedReceipt(invoiceID, receiptRef string, err error) {
	p.Metrics.RecordReceipt("orphaned")
	p.Logger.Warnw("receipt stored for a rolled back payment",
		"invoice_id", invoiceID,
		"receipt_ref", receiptRef,
		"error", err)
}
