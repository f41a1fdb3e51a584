package service

import (
	"context"

	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

const jobReconciliation = "reconciliation"

// PaymentReconciler applies an incoming payment to the oldest pending invoice of a subscription
type PaymentReconciler interface {
	// Reconcile settles the earliest issued pending invoice of the (customer, plan)
	// subscription. The amount must equal the invoice total exactly.
	Reconcile(ctx context.Context, customerID, planID string, amount decimal.Decimal, method types.PaymentMethod) (*PaymentResult, error)
}

type paymentReconciler struct {
	ServiceParams
}

func NewPaymentReconciler(params ServiceParams) PaymentReconciler {
	return &paymentReconciler{ServiceParams: params}
}

func (s *paymentReconciler) Reconcile(ctx context.Context, customerID, planID string, amount decimal.Decimal, method types.PaymentMethod) (*PaymentResult, error) {
	if err := method.Validate(); err != nil {
		return nil, err
	}
	if customerID == "" || planID == "" {
		return nil, ierr.NewError("customer and plan are required").
			WithHint("Both customer_id and plan_id must be provided").
			Mark(ierr.ErrValidation)
	}

	span, ctx := s.Sentry.StartTransaction(ctx, "billing.reconcile")
	if span != nil {
		defer span.Finish()
	}

	var result *PaymentResult
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetByCustomerAndPlan(ctx, customerID, planID)
		if err != nil {
			return err
		}

		inv, err := s.InvoiceRepo.GetOldestPendingForUpdate(ctx, sub.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return invoice.NewNoPendingInvoiceError(sub.ID)
			}
			return err
		}

		if !amount.Equal(inv.TotalAmount) {
			return ierr.NewAmountMismatch(inv.ID, inv.TotalAmount, amount)
		}

		result, err = s.settleInvoice(ctx, inv, types.InvoiceStatusPending, method)
		return err
	})
	if err != nil {
		// settled inside the transaction but the commit failed
		if result != nil {
			s.reportOrphanedReceipt(result.InvoiceID, result.ReceiptRef, err)
		}
		s.Metrics.RecordReconciliation(reconciliationOutcome(err))
		if ierr.IsReceiptGeneration(err) {
			s.Sentry.CaptureEntityFailure(ctx, jobReconciliation, customerID, err)
		}
		s.Logger.Warnw("payment reconciliation failed",
			"customer_id", customerID,
			"plan_id", planID,
			"amount", amount,
			"method", method,
			"error", err)
		return nil, err
	}

	s.Metrics.RecordReconciliation("paid")
	s.Logger.Infow("reconciled payment",
		"customer_id", customerID,
		"plan_id", planID,
		"invoice_id", result.InvoiceID,
		"payment_id", result.PaymentID,
		"receipt_number", result.ReceiptNumber,
		"total_paid", result.TotalPaid)

	return result, nil
}

func reconciliationOutcome(err error) string {
	switch {
	case ierr.IsAmountMismatch(err):
		return "amount_mismatch"
	case ierr.IsAlreadyPaid(err):
		return "already_paid"
	case ierr.IsReceiptGeneration(err):
		return "receipt_failed"
	case ierr.IsNotFound(err):
		return "not_found"
	case ierr.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
