package service

import (
	"context"
	"sync"
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/settings"
	"github.com/netbill/netbill/internal/domain/subscription"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/idempotency"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

const (
	jobInvoiceGeneration = "invoice_generation"

	// GenerationDisabledReason is reported when auto invoicing is switched off
	GenerationDisabledReason = "disabled"
)

// GenerateResult summarizes one invoice generation run
type GenerateResult struct {
	Period    types.BillingPeriod `json:"period"`
	IssueDate time.Time           `json:"issue_date"`
	Generated int                 `json:"generated"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	// Reason is set when the run did nothing on purpose
	Reason string `json:"reason,omitempty"`
}

// InvoiceGenerator creates the periodic invoice of every active subscription
type InvoiceGenerator interface {
	Generate(ctx context.Context, period types.BillingPeriod, bs *settings.BusinessSettings) (*GenerateResult, error)
}

type invoiceGenerator struct {
	ServiceParams
	idempotency *idempotency.Generator
}

func NewInvoiceGenerator(params ServiceParams) InvoiceGenerator {
	return &invoiceGenerator{
		ServiceParams: params,
		idempotency:   idempotency.NewGenerator(),
	}
}

type generationOutcome int

const (
	outcomeGenerated generationOutcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *invoiceGenerator) Generate(ctx context.Context, period types.BillingPeriod, bs *settings.BusinessSettings) (*GenerateResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if bs == nil {
		return nil, ierr.NewError("business settings not loaded").
			WithHint("Invoice generation needs payment_window_days").
			Mark(ierr.ErrConfiguration)
	}

	defer s.Metrics.ObserveJob(jobInvoiceGeneration, time.Now())

	issueDate := s.today()
	result := &GenerateResult{
		Period:    period,
		IssueDate: issueDate,
	}

	if !bs.AutoInvoicingEnabled {
		s.Logger.Infow("auto invoicing disabled, skipping generation", "period", period)
		result.Reason = GenerationDisabledReason
		return result, nil
	}

	subs, err := s.SubRepo.ListActiveWithPlan(ctx)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("generating invoices",
		"period", period,
		"issue_date", issueDate.Format(types.DateLayout),
		"subscriptions", len(subs))

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.parallelism())
	for _, sub := range subs {
		sub := sub // per-iteration copy for the goroutine below (go 1.21 loop semantics)
		p.Go(func() {
			// stop handing out work once the caller cancels, entities already committed stay
			if ctx.Err() != nil {
				return
			}
			outcome := s.generateForSubscription(ctx, sub, period, issueDate, bs)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeGenerated:
				result.Generated++
			case outcomeSkipped:
				result.Skipped++
			case outcomeFailed:
				result.Failed++
			}
		})
	}
	p.Wait()

	s.Metrics.RecordGeneration(result.Generated, result.Skipped)
	s.Logger.Infow("invoice generation finished",
		"period", period,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", result.Failed)

	if err := ctx.Err(); err != nil {
		return result, ierr.WithError(err).
			WithHint("Invoice generation was cancelled").
			Mark(ierr.ErrSystem)
	}
	return result, nil
}

// generateForSubscription creates the invoice of one subscription in its own transaction
func (s *invoiceGenerator) generateForSubscription(
	ctx context.Context,
	sub *subscription.WithPlan,
	period types.BillingPeriod,
	issueDate time.Time,
	bs *settings.BusinessSettings,
) generationOutcome {
	outcome := outcomeGenerated

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.InvoiceRepo.ExistsForPeriod(ctx, sub.ID, period)
		if err != nil {
			return err
		}
		if exists {
			outcome = outcomeSkipped
			return nil
		}

		inv := invoice.New(ctx, sub.ID, sub.CustomerID, period, issueDate, bs.PaymentWindowDays, sub.PlanPrice)
		inv.IdempotencyKey = lo.ToPtr(s.idempotency.InvoiceKey(sub.ID, period))

		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		s.Logger.Debugw("created invoice",
			"invoice_id", inv.ID,
			"subscription_id", sub.ID,
			"period", period,
			"total_amount", inv.TotalAmount,
			"due_date", inv.DueDate.Format(types.DateLayout))
		return nil
	})
	// a concurrent run won the (subscription, period) slot
	if ierr.IsAlreadyExists(err) {
		return outcomeSkipped
	}
	if err != nil {
		s.Logger.Errorw("failed to generate invoice",
			"subscription_id", sub.ID,
			"period", period,
			"error", err)
		s.Metrics.RecordEntityFailure(jobInvoiceGeneration)
		s.Sentry.CaptureEntityFailure(ctx, jobInvoiceGeneration, sub.ID, err)
		return outcomeFailed
	}
	return outcome
}
