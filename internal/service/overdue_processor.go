package service

import (
	"context"
	"sync"
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/settings"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/sourcegraph/conc/pool"
)

const jobOverdueProcessing = "overdue_processing"

// ProcessResult summarizes one overdue processing run
type ProcessResult struct {
	Today       time.Time `json:"today"`
	Examined    int       `json:"examined"`
	FeesApplied int       `json:"fees_applied"`
	Suspended   int       `json:"suspended"`
	Failed      int       `json:"failed"`
}

// OverdueProcessor charges late fees and suspends subscriptions of long overdue invoices.
// Running it again on the same day changes nothing.
type OverdueProcessor interface {
	Process(ctx context.Context, today time.Time, bs *settings.BusinessSettings) (*ProcessResult, error)
}

type overdueProcessor struct {
	ServiceParams
}

func NewOverdueProcessor(params ServiceParams) OverdueProcessor {
	return &overdueProcessor{ServiceParams: params}
}

func (s *overdueProcessor) Process(ctx context.Context, today time.Time, bs *settings.BusinessSettings) (*ProcessResult, error) {
	if bs == nil {
		return nil, ierr.NewError("business settings not loaded").
			WithHint("Overdue processing needs late_fee_amount and days_for_suspension").
			Mark(ierr.ErrConfiguration)
	}

	defer s.Metrics.ObserveJob(jobOverdueProcessing, time.Now())

	today = types.NormalizeDay(today)
	result := &ProcessResult{Today: today}

	overdue, err := s.InvoiceRepo.ListPendingDueBefore(ctx, today)
	if err != nil {
		return nil, err
	}
	result.Examined = len(overdue)

	s.Logger.Infow("processing overdue invoices",
		"today", today.Format(types.DateLayout),
		"invoices", len(overdue),
		"late_fee", bs.LateFeeAmount,
		"grace_days", bs.SuspensionGraceDays)

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.parallelism())
	for _, inv := range overdue {
		inv := inv // per-iteration copy for the goroutine below (go 1.21 loop semantics)
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			feeApplied, suspended, err := s.processInvoice(ctx, inv.ID, today, bs)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				return
			}
			if feeApplied {
				result.FeesApplied++
			}
			if suspended {
				result.Suspended++
			}
		})
	}
	p.Wait()

	s.Metrics.RecordOverdue(result.FeesApplied, result.Suspended)
	s.Logger.Infow("overdue processing finished",
		"today", today.Format(types.DateLayout),
		"fees_applied", result.FeesApplied,
		"suspended", result.Suspended,
		"failed", result.Failed)

	if err := ctx.Err(); err != nil {
		return result, ierr.WithError(err).
			WithHint("Overdue processing was cancelled").
			Mark(ierr.ErrSystem)
	}
	return result, nil
}

// processInvoice applies the late fee and the suspension rule to one invoice in its own transaction
func (s *overdueProcessor) processInvoice(ctx context.Context, invoiceID string, today time.Time, bs *settings.BusinessSettings) (feeApplied, suspended bool, err error) {
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		// paid or moved to review since the listing
		if !inv.IsOverdue(today) {
			return nil
		}

		if !inv.HasLateFee() && bs.LateFeeAmount.IsPositive() {
			feeApplied, err = s.InvoiceRepo.ApplyLateFee(ctx, inv.ID, bs.LateFeeAmount)
			if err != nil {
				return err
			}
			if feeApplied {
				s.Logger.Debugw("applied late fee",
					"invoice_id", inv.ID,
					"subscription_id", inv.SubscriptionID,
					"late_fee", bs.LateFeeAmount)
			}
		}

		suspended, err = s.suspendIfDue(ctx, inv, today, bs)
		return err
	})
	if err != nil {
		s.Logger.Errorw("failed to process overdue invoice",
			"invoice_id", invoiceID,
			"error", err)
		s.Metrics.RecordEntityFailure(jobOverdueProcessing)
		s.Sentry.CaptureEntityFailure(ctx, jobOverdueProcessing, invoiceID, err)
		return false, false, err
	}
	return feeApplied, suspended, nil
}

func (s *overdueProcessor) suspendIfDue(ctx context.Context, inv *invoice.Invoice, today time.Time, bs *settings.BusinessSettings) (bool, error) {
	daysOverdue := inv.DaysOverdue(today)
	if daysOverdue < bs.SuspensionGraceDays {
		return false, nil
	}

	sub, err := s.SubRepo.Get(ctx, inv.SubscriptionID)
	if err != nil {
		return false, err
	}
	if !sub.IsActive() {
		return false, nil
	}

	ok, err := s.SubRepo.Suspend(ctx, sub.ID, s.now())
	if err != nil {
		return false, err
	}
	if ok {
		s.Logger.Infow("suspended subscription",
			"subscription_id", sub.ID,
			"customer_id", sub.CustomerID,
			"invoice_id", inv.ID,
			"days_overdue", daysOverdue)
	}
	return ok, nil
}
