package service

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/settings"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// BillingService is the surface the schedulers, workflows and HTTP triggers drive.
// It loads the business settings and hands them to the billing operations.
type BillingService interface {
	// GenerateMonthlyInvoices invoices every active subscription for period,
	// the current period when empty
	GenerateMonthlyInvoices(ctx context.Context, period types.BillingPeriod) (*GenerateResult, error)
	// ProcessOverdueInvoices runs late fees and suspensions for today, the current day when zero
	ProcessOverdueInvoices(ctx context.Context, today time.Time) (*ProcessResult, error)
	ReconcilePayment(ctx context.Context, customerID, planID string, amount decimal.Decimal, method types.PaymentMethod) (*PaymentResult, error)

	// Today is the current calendar day in the billing time zone
	Today() time.Time
	CurrentPeriod() types.BillingPeriod
}

type billingService struct {
	ServiceParams
	settings   SettingsService
	generator  InvoiceGenerator
	overdue    OverdueProcessor
	reconciler PaymentReconciler
}

func NewBillingService(
	params ServiceParams,
	settingsService SettingsService,
	generator InvoiceGenerator,
	overdue OverdueProcessor,
	reconciler PaymentReconciler,
) BillingService {
	return &billingService{
		ServiceParams: params,
		settings:      settingsService,
		generator:     generator,
		overdue:       overdue,
		reconciler:    reconciler,
	}
}

func (s *billingService) Today() time.Time {
	return s.today()
}

func (s *billingService) CurrentPeriod() types.BillingPeriod {
	return types.BillingPeriodOf(s.today())
}

func (s *billingService) GenerateMonthlyInvoices(ctx context.Context, period types.BillingPeriod) (*GenerateResult, error) {
	if period == "" {
		period = s.CurrentPeriod()
	}

	bs, err := s.settings.LoadBusinessSettings(ctx)
	if err != nil {
		return nil, err
	}
	// a disabled run needs nothing else configured
	if bs.AutoInvoicingEnabled {
		bs, err = s.settings.LoadBusinessSettings(ctx, settings.GenerationKeys...)
		if err != nil {
			s.Logger.Errorw("cannot generate invoices, business settings incomplete",
				"period", period,
				"error", err)
			return nil, err
		}
	}

	return s.generator.Generate(ctx, period, bs)
}

func (s *billingService) ProcessOverdueInvoices(ctx context.Context, today time.Time) (*ProcessResult, error) {
	if today.IsZero() {
		today = s.today()
	}

	bs, err := s.settings.LoadBusinessSettings(ctx, settings.OverdueKeys...)
	if err != nil {
		s.Logger.Errorw("cannot process overdue invoices, business settings incomplete",
			"today", today.Format(types.DateLayout),
			"error", err)
		return nil, err
	}

	return s.overdue.Process(ctx, today, bs)
}

func (s *billingService) ReconcilePayment(ctx context.Context, customerID, planID string, amount decimal.Decimal, method types.PaymentMethod) (*PaymentResult, error) {
	return s.reconciler.Reconcile(ctx, customerID, planID, amount, method)
}
