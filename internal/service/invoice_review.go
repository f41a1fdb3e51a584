package service

import (
	"context"
	"strings"

	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
)

// InvoiceReviewService covers the manual side of the invoice lifecycle:
// customer uploaded payment proofs, their review and administrative cancellation
type InvoiceReviewService interface {
	GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error)

	// SubmitPaymentProof attaches a proof of payment to a pending invoice of the customer and puts it in review
	SubmitPaymentProof(ctx context.Context, invoiceID, customerID, proofRef string) (*invoice.Invoice, error)
	// ApproveInvoiceReview settles an invoice in review at its total and issues the receipt
	ApproveInvoiceReview(ctx context.Context, invoiceID string, method types.PaymentMethod) (*PaymentResult, error)
	// RejectInvoiceReview returns an invoice in review to pending
	RejectInvoiceReview(ctx context.Context, invoiceID string) (*invoice.Invoice, error)
	// CancelInvoice cancels an unpaid invoice, freeing its billing period for regeneration
	CancelInvoice(ctx context.Context, invoiceID string) (*invoice.Invoice, error)
	// GetReceiptRef returns the receipt reference of a paid invoice
	GetReceiptRef(ctx context.Context, invoiceID string) (string, error)
}

type invoiceReviewService struct {
	ServiceParams
}

func NewInvoiceReviewService(params ServiceParams) InvoiceReviewService {
	return &invoiceReviewService{ServiceParams: params}
}

func (s *invoiceReviewService) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.InvoiceRepo.Get(ctx, id)
}

func (s *invoiceReviewService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = &types.InvoiceFilter{}
	}
	if filter.BillingPeriod != "" {
		if err := filter.BillingPeriod.Validate(); err != nil {
			return nil, err
		}
	}
	for _, st := range filter.Statuses {
		if err := st.Validate(); err != nil {
			return nil, err
		}
	}
	return s.InvoiceRepo.List(ctx, filter)
}

func (s *invoiceReviewService) SubmitPaymentProof(ctx context.Context, invoiceID, customerID, proofRef string) (*invoice.Invoice, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, ierr.NewError("proof reference is required").
			WithHint("A payment proof must be attached").
			Mark(ierr.ErrValidation)
	}

	var updated *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		// an invoice of another customer is reported as missing
		if inv.CustomerID != customerID {
			return invoice.NewNotFoundError(invoiceID)
		}
		if err := s.transition(ctx, inv, types.InvoiceStatusInReview); err != nil {
			return err
		}
		if err := s.InvoiceRepo.SetProofRef(ctx, inv.ID, proofRef); err != nil {
			return err
		}
		updated, err = s.InvoiceRepo.Get(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("payment proof submitted",
		"invoice_id", invoiceID,
		"customer_id", customerID)
	return updated, nil
}

func (s *invoiceReviewService) ApproveInvoiceReview(ctx context.Context, invoiceID string, method types.PaymentMethod) (*PaymentResult, error) {
	if method == "" {
		method = types.PaymentMethodBankTransfer
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}

	var result *PaymentResult
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == types.InvoiceStatusPaid {
			return invoice.NewAlreadyPaidError(inv.ID)
		}
		if inv.Status != types.InvoiceStatusInReview {
			return invoice.NewInvalidTransitionError(inv.ID, inv.Status, types.InvoiceStatusPaid)
		}

		result, err = s.settleInvoice(ctx, inv, types.InvoiceStatusInReview, method)
		return err
	})
	if err != nil {
		if result != nil {
			s.reportOrphanedReceipt(result.InvoiceID, result.ReceiptRef, err)
		}
		s.Metrics.RecordReconciliation(reconciliationOutcome(err))
		return nil, err
	}

	s.Metrics.RecordReconciliation("paid")
	s.Logger.Infow("approved invoice review",
		"invoice_id", invoiceID,
		"payment_id", result.PaymentID,
		"receipt_number", result.ReceiptNumber,
		"user_id", types.GetUserID(ctx))
	return result, nil
}

func (s *invoiceReviewService) RejectInvoiceReview(ctx context.Context, invoiceID string) (*invoice.Invoice, error) {
	return s.moveTo(ctx, invoiceID, types.InvoiceStatusPending, types.InvoiceStatusInReview)
}

func (s *invoiceReviewService) CancelInvoice(ctx context.Context, invoiceID string) (*invoice.Invoice, error) {
	return s.moveTo(ctx, invoiceID, types.InvoiceStatusCancelled, types.InvoiceStatusPending, types.InvoiceStatusInReview)
}

// moveTo transitions an invoice to status when it currently is in one of allowed
func (s *invoiceReviewService) moveTo(ctx context.Context, invoiceID string, status types.InvoiceStatus, allowed ...types.InvoiceStatus) (*invoice.Invoice, error) {
	var updated *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		if !lo.Contains(allowed, inv.Status) {
			if inv.Status == types.InvoiceStatusPaid {
				return invoice.NewAlreadyPaidError(inv.ID)
			}
			return invoice.NewInvalidTransitionError(inv.ID, inv.Status, status)
		}

		if err := s.transition(ctx, inv, status); err != nil {
			return err
		}
		updated, err = s.InvoiceRepo.Get(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice status changed",
		"invoice_id", invoiceID,
		"status", status,
		"user_id", types.GetUserID(ctx))
	return updated, nil
}

// transition applies one step of the invoice status machine with a compare and set on the current status
func (s *invoiceReviewService) transition(ctx context.Context, inv *invoice.Invoice, to types.InvoiceStatus) error {
	if inv.Status == types.InvoiceStatusPaid {
		return invoice.NewAlreadyPaidError(inv.ID)
	}
	if !inv.Status.CanTransitionTo(to) {
		return invoice.NewInvalidTransitionError(inv.ID, inv.Status, to)
	}

	ok, err := s.InvoiceRepo.TransitionStatus(ctx, inv.ID, inv.Status, to)
	if err != nil {
		return err
	}
	if !ok {
		return invoice.NewAlreadyPaidError(inv.ID)
	}
	inv.Status = to
	return nil
}

func (s *invoiceReviewService) GetReceiptRef(ctx context.Context, invoiceID string) (string, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	if inv.Status != types.InvoiceStatusPaid || inv.GetReceiptRef() == "" {
		return "", ierr.NewError("receipt not found").
			WithHintf("Invoice %s has no receipt", invoiceID).
			WithReportableDetails(map[string]any{
				"invoice_id": invoiceID,
				"status":     inv.Status,
			}).
			Mark(ierr.ErrNotFound)
	}
	return inv.GetReceiptRef(), nil
}
