package service

import (
	"time"

	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/domain/customer"
	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/payment"
	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/receipt"
	"github.com/netbill/netbill/internal/domain/settings"
	"github.com/netbill/netbill/internal/domain/subscription"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/sentry"
	"github.com/netbill/netbill/internal/types"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Cache   cache.Cache
	Sentry  *sentry.Service
	Metrics *metrics.Metrics

	// Repositories
	CustomerRepo customer.Repository
	PlanRepo     plan.Repository
	SubRepo      subscription.Repository
	InvoiceRepo  invoice.Repository
	PaymentRepo  payment.Repository
	SettingsRepo settings.Repository

	ReceiptIssuer receipt.Issuer

	// Now is the wall clock; replaced in tests
	Now func() time.Time
}

// Module provides every billing service
func Module() fx.Option {
	return fx.Provide(
		NewServiceParams,
		NewSettingsService,
		NewInvoiceGenerator,
		NewOverdueProcessor,
		NewPaymentReconciler,
		NewInvoiceReviewService,
		NewBillingService,
	)
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	sentry *sentry.Service,
	metrics *metrics.Metrics,
	customerRepo customer.Repository,
	planRepo plan.Repository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	settingsRepo settings.Repository,
	receiptIssuer receipt.Issuer,
) ServiceParams {
	return ServiceParams{
		Logger:        logger,
		Config:        config,
		DB:            db,
		Cache:         cache,
		Sentry:        sentry,
		Metrics:       metrics,
		CustomerRepo:  customerRepo,
		PlanRepo:      planRepo,
		SubRepo:       subRepo,
		InvoiceRepo:   invoiceRepo,
		PaymentRepo:   paymentRepo,
		SettingsRepo:  settingsRepo,
		ReceiptIssuer: receiptIssuer,
		Now:           time.Now,
	}
}

func (p ServiceParams) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// today is the current calendar day in the billing time zone
func (p ServiceParams) today() time.Time {
	loc, err := p.Config.Billing.Location()
	if err != nil {
		loc = time.UTC
	}
	return types.CalendarDay(p.now(), loc)
}

func (p ServiceParams) parallelism() int {
	if p.Config.Billing.Parallelism <= 0 {
		return 1
	}
	return p.Config.Billing.Parallelism
}
