package postgres

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/payment"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			id, invoice_id, subscription_id, customer_id, amount, method,
			paid_at, receipt_number, receipt_ref,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_id, :subscription_id, :customer_id, :amount, :method,
			:paid_at, :receipt_number, :receipt_ref,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, query, p); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This invoice already has a payment").
				WithReportableDetails(map[string]any{"invoice_id": p.InvoiceID}).
				Mark(ierr.ErrAlreadyPaid)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"invoice_id": p.InvoiceID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.Querier(ctx).GetContext(ctx, &p, `SELECT * FROM payments WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s was not found", id).
				WithReportableDetails(map[string]any{"payment_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	query := `SELECT * FROM payments WHERE invoice_id = $1 ORDER BY paid_at`
	if err := r.db.Querier(ctx).SelectContext(ctx, &payments, query, invoiceID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) SetReceiptRef(ctx context.Context, id string, receiptRef string) error {
	query := `UPDATE payments SET receipt_ref = $2, updated_at = $3, updated_by = $4 WHERE id = $1`
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, id, receiptRef, time.Now().UTC(), types.GetUserID(ctx))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to store receipt reference").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("payment not found").
			WithHintf("Payment %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
