package service

import (
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/subscription"
	"github.com/netbill/netbill/internal/testutil"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// newTestServiceParams wires the suite's in-memory stores into ServiceParams
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:        s.GetLogger(),
		Config:        s.GetConfig(),
		DB:            s.GetDB(),
		Cache:         s.GetCache(),
		Metrics:       s.GetMetrics(),
		CustomerRepo:  stores.CustomerRepo,
		PlanRepo:      stores.PlanRepo,
		SubRepo:       stores.SubscriptionRepo,
		InvoiceRepo:   stores.InvoiceRepo,
		PaymentRepo:   stores.PaymentRepo,
		SettingsRepo:  stores.SettingsRepo,
		ReceiptIssuer: s.GetReceiptIssuer(),
		Now:           s.NowFunc(),
	}
}

func newTestBillingService(params ServiceParams) BillingService {
	return NewBillingService(
		params,
		NewSettingsService(params),
		NewInvoiceGenerator(params),
		NewOverdueProcessor(params),
		NewPaymentReconciler(params),
	)
}

// createInvoice stores a pending invoice for sub issued on issueDate with a 10 day window
func createInvoice(s *testutil.BaseServiceTestSuite, sub *subscription.Subscription, period types.BillingPeriod, issueDate time.Time, amount string) *invoice.Invoice {
	inv := invoice.New(s.GetContext(), sub.ID, sub.CustomerID, period, issueDate, 10, decimal.RequireFromString(amount))
	s.Require().NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
