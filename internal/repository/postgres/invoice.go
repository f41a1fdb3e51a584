package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

const (
	idxInvoiceSubscriptionPeriod = "uq_invoices_subscription_period"
	idxInvoiceIdempotencyKey     = "uq_invoices_idempotency_key"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query, args, err := sqlx.Named(`
		INSERT INTO invoices (
			id, subscription_id, customer_id, billing_period,
			issue_date, due_date, base_amount, late_fee, total_amount,
			status, receipt_ref, proof_ref, paid_at, idempotency_key,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :customer_id, :billing_period,
			:issue_date, :due_date, :base_amount, :late_fee, :total_amount,
			:status, :receipt_ref, :proof_ref, :paid_at, :idempotency_key,
			:created_at, :updated_at, :created_by, :updated_by
		)
		RETURNING sequence`, inv)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&inv.Sequence); err != nil {
		if isUniqueViolation(err, idxInvoiceSubscriptionPeriod, idxInvoiceIdempotencyKey) {
			return ierr.WithError(err).
				WithHint("An invoice for this subscription and period already exists").
				WithReportableDetails(map[string]any{
					"subscription_id": inv.SubscriptionID,
					"billing_period":  inv.BillingPeriod,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getOne(ctx, `SELECT * FROM invoices WHERE id = $1`, id)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getOne(ctx, `SELECT * FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *invoiceRepository) getOne(ctx context.Context, query, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	if err := r.db.Querier(ctx).GetContext(ctx, &inv, query, id); err != nil {
		if isNoRows(err) {
			return nil, invoice.NewNotFoundError(id)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	normalizeInvoice(&inv)
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.SubscriptionID != "" {
			where = append(where, "subscription_id = "+arg(filter.SubscriptionID))
		}
		if filter.CustomerID != "" {
			where = append(where, "customer_id = "+arg(filter.CustomerID))
		}
		if filter.BillingPeriod != "" {
			where = append(where, "billing_period = "+arg(filter.BillingPeriod))
		}
		if len(filter.Statuses) > 0 {
			placeholders := make([]string, 0, len(filter.Statuses))
			for _, s := range filter.Statuses {
				placeholders = append(placeholders, arg(s))
			}
			where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
		}
		if filter.DueBefore != nil {
			// civil date, independent of the session time zone
			where = append(where, "due_date < "+arg(types.NormalizeDay(*filter.DueBefore).Format(types.DateLayout))+"::date")
		}
	}

	query := "SELECT * FROM invoices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY issue_date, sequence"
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	var invoices []*invoice.Invoice
	if err := r.db.Querier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	for _, inv := range invoices {
		normalizeInvoice(inv)
	}
	return invoices, nil
}

func (r *invoiceRepository) ExistsForPeriod(ctx context.Context, subscriptionID string, period types.BillingPeriod) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE subscription_id = $1 AND billing_period = $2 AND status <> $3
		)`

	var exists bool
	if err := r.db.Querier(ctx).GetContext(ctx, &exists, query, subscriptionID, period, types.InvoiceStatusCancelled); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check existing invoice").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *invoiceRepository) ListPendingDueBefore(ctx context.Context, today time.Time) ([]*invoice.Invoice, error) {
	return r.List(ctx, &types.InvoiceFilter{
		Statuses:  []types.InvoiceStatus{types.InvoiceStatusPending},
		DueBefore: &today,
	})
}

func (r *invoiceRepository) GetOldestPendingForUpdate(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE subscription_id = $1 AND status = $2
		ORDER BY issue_date, sequence
		LIMIT 1
		FOR UPDATE`

	var inv invoice.Invoice
	if err := r.db.Querier(ctx).GetContext(ctx, &inv, query, subscriptionID, types.InvoiceStatusPending); err != nil {
		if isNoRows(err) {
			return nil, invoice.NewNoPendingInvoiceError(subscriptionID)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get pending invoice").
			Mark(ierr.ErrDatabase)
	}
	normalizeInvoice(&inv)
	return &inv, nil
}

func (r *invoiceRepository) ApplyLateFee(ctx context.Context, id string, fee decimal.Decimal) (bool, error) {
	query := `
		UPDATE invoices
		SET late_fee = $2, total_amount = base_amount + $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND status = $5 AND late_fee = 0`

	return r.execConditional(ctx, "Failed to apply late fee", id, query,
		id, fee, time.Now().UTC(), types.GetUserID(ctx), types.InvoiceStatusPending)
}

func (r *invoiceRepository) TransitionStatus(ctx context.Context, id string, from, to types.InvoiceStatus) (bool, error) {
	query := `
		UPDATE invoices
		SET status = $3, updated_at = $4, updated_by = $5
		WHERE id = $1 AND status = $2`

	return r.execConditional(ctx, "Failed to update invoice status", id, query,
		id, from, to, time.Now().UTC(), types.GetUserID(ctx))
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id string, from types.InvoiceStatus, paidAt time.Time) (bool, error) {
	query := `
		UPDATE invoices
		SET status = $3, paid_at = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND status = $2`

	return r.execConditional(ctx, "Failed to mark invoice paid", id, query,
		id, from, types.InvoiceStatusPaid, paidAt, time.Now().UTC(), types.GetUserID(ctx))
}

func (r *invoiceRepository) SetReceiptRef(ctx context.Context, id string, receiptRef string) error {
	return r.setColumn(ctx, id, "receipt_ref", receiptRef)
}

func (r *invoiceRepository) SetProofRef(ctx context.Context, id string, proofRef string) error {
	return r.setColumn(ctx, id, "proof_ref", proofRef)
}

func (r *invoiceRepository) setColumn(ctx context.Context, id, column, value string) error {
	query := fmt.Sprintf(`UPDATE invoices SET %s = $2, updated_at = $3, updated_by = $4 WHERE id = $1`, column)

	ok, err := r.execConditional(ctx, "Failed to update invoice", id, query,
		id, value, time.Now().UTC(), types.GetUserID(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return invoice.NewNotFoundError(id)
	}
	return nil
}

// execConditional runs an UPDATE guarded by its WHERE clause and reports whether a row changed
func (r *invoiceRepository) execConditional(ctx context.Context, hint, id, query string, args ...interface{}) (bool, error) {
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func normalizeInvoice(inv *invoice.Invoice) {
	inv.IssueDate = day(inv.IssueDate)
	inv.DueDate = day(inv.DueDate)
}
