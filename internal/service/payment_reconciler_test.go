package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/netbill/netbill/internal/domain/customer"
	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/payment"
	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/subscription"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/testutil"
	"github.com/netbill/netbill/internal/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type PaymentReconcilerSuite struct {
	testutil.BaseServiceTestSuite
	params     ServiceParams
	reconciler PaymentReconciler
	customer   *customer.Customer
	plan       *plan.Plan
	sub        *subscription.Subscription
	inv        *invoice.Invoice
}

func TestPaymentReconciler(t *testing.T) {
	suite.Run(t, new(PaymentReconcilerSuite))
}

func (s *PaymentReconcilerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.SetNow(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC))
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.reconciler = NewPaymentReconciler(s.params)

	s.customer = s.CreateCustomer("Ana", "Diaz")
	s.plan = s.CreatePlan("basic", "25.00")
	s.sub = s.CreateSubscription(s.customer, s.plan, types.SubscriptionStatusActive)
	s.inv = createInvoice(&s.BaseServiceTestSuite, s.sub, "2024-03", day(2024, 3, 1), "25.00")
}

func (s *PaymentReconcilerSuite) getInvoice(id string) *invoice.Invoice {
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return inv
}

func (s *PaymentReconcilerSuite) TestExactPayment() {
	result, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25"), "Cash")
	s.Require().NoError(err)

	s.Equal(s.inv.ID, result.InvoiceID)
	s.Equal("F2024-001", result.ReceiptNumber)
	s.Equal("receipt/2024/F2024-001.pdf", result.ReceiptRef)
	s.True(result.TotalPaid.Equal(dec("25.00")))
	s.Equal(s.GetNow(), result.PaidAt)

	inv := s.getInvoice(s.inv.ID)
	s.Equal(types.InvoiceStatusPaid, inv.Status)
	s.Equal(result.ReceiptRef, inv.GetReceiptRef())
	s.Require().NotNil(inv.PaidAt)

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Require().Len(payments, 1)
	s.Equal(result.PaymentID, payments[0].ID)
	s.Equal(types.PaymentMethodCash, payments[0].Method)
	s.True(payments[0].Amount.Equal(inv.TotalAmount))
	s.Equal("F2024-001", payments[0].ReceiptNumber)
	s.Equal(result.ReceiptRef, *payments[0].ReceiptRef)

	requests := s.GetReceiptIssuer().Requests()
	s.Require().Len(requests, 1)
	s.Equal(s.customer.ID, requests[0].Customer.ID)
	s.Equal(types.InvoiceStatusPaid, requests[0].Invoice.Status)
}

func (s *PaymentReconcilerSuite) TestSecondPaymentFindsNothingPending() {
	_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Require().NoError(err)

	_, err = s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Len(payments, 1)
}

func (s *PaymentReconcilerSuite) TestAmountMismatchLeavesInvoiceUntouched() {
	for _, amount := range []string{"24.99", "25.01", "0", "30.00"} {
		_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec(amount), types.PaymentMethodCash)
		s.Require().Error(err)
		s.True(ierr.IsAmountMismatch(err))

		var mismatch *ierr.AmountMismatchError
		s.Require().True(ierr.As(err, &mismatch))
		s.True(mismatch.Required.Equal(dec("25.00")))
		s.True(mismatch.Received.Equal(dec(amount)))
	}

	inv := s.getInvoice(s.inv.ID)
	s.Equal(types.InvoiceStatusPending, inv.Status)
	s.Nil(inv.ReceiptRef)

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Empty(payments)
	s.Empty(s.GetReceiptIssuer().Requests())
}

func (s *PaymentReconcilerSuite) TestMismatchAfterLateFee() {
	_, err := s.GetStores().InvoiceRepo.ApplyLateFee(s.GetContext(), s.inv.ID, dec("5.00"))
	s.Require().NoError(err)

	_, err = s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	var mismatch *ierr.AmountMismatchError
	s.Require().True(ierr.As(err, &mismatch))
	s.True(mismatch.Required.Equal(dec("30.00")))

	result, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("30.00"), types.PaymentMethodCash)
	s.NoError(err)
	s.True(result.TotalPaid.Equal(dec("30")))
}

func (s *PaymentReconcilerSuite) TestPaysEarliestIssuedInvoiceFirst() {
	older := createInvoice(&s.BaseServiceTestSuite, s.sub, "2024-02", day(2024, 2, 1), "25.00")

	result, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodBankTransfer)
	s.Require().NoError(err)
	s.Equal(older.ID, result.InvoiceID)
	s.Equal(types.InvoiceStatusPending, s.getInvoice(s.inv.ID).Status)

	result, err = s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodBankTransfer)
	s.Require().NoError(err)
	s.Equal(s.inv.ID, result.InvoiceID)
}

func (s *PaymentReconcilerSuite) TestOtherSubscriptionsAreIsolated() {
	fiber := s.CreatePlan("fiber", "49.90")
	otherSub := s.CreateSubscription(s.customer, fiber, types.SubscriptionStatusActive)
	other := createInvoice(&s.BaseServiceTestSuite, otherSub, "2024-03", day(2024, 3, 1), "49.90")

	_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, fiber.ID, dec("25.00"), types.PaymentMethodCash)
	s.True(ierr.IsAmountMismatch(err))

	result, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, fiber.ID, dec("49.90"), types.PaymentMethodCard)
	s.Require().NoError(err)
	s.Equal(other.ID, result.InvoiceID)
	s.Equal(types.InvoiceStatusPending, s.getInvoice(s.inv.ID).Status)
}

func (s *PaymentReconcilerSuite) TestCancelledSubscriptionInvoiceLeftPending() {
	legacy := s.CreatePlan("legacy", "19.00")
	cancelled := s.CreateSubscription(s.customer, legacy, types.SubscriptionStatusCancelled)
	stale := createInvoice(&s.BaseServiceTestSuite, cancelled, "2024-01", day(2024, 1, 1), "25.00")

	result, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Require().NoError(err)
	s.Equal(s.inv.ID, result.InvoiceID)
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(s.inv.ID).Status)

	inv := s.getInvoice(stale.ID)
	s.Equal(types.InvoiceStatusPending, inv.Status)
	s.Nil(inv.ReceiptRef)

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), stale.ID)
	s.NoError(err)
	s.Empty(payments)
}

func (s *PaymentReconcilerSuite) TestSamePlanPrefersActiveSubscription() {
	other := s.CreateCustomer("Luis", "Mora")
	older := &subscription.Subscription{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID: other.ID,
		PlanID:     s.plan.ID,
		Status:     types.SubscriptionStatusCancelled,
		StartDate:  day(2023, 6, 1),
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), older))
	current := &subscription.Subscription{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID: other.ID,
		PlanID:     s.plan.ID,
		Status:     types.SubscriptionStatusActive,
		StartDate:  day(2024, 1, 15),
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), current))

	stale := createInvoice(&s.BaseServiceTestSuite, older, "2023-12", day(2023, 12, 1), "25.00")
	open := createInvoice(&s.BaseServiceTestSuite, current, "2024-03", day(2024, 3, 1), "25.00")

	result, err := s.reconciler.Reconcile(s.GetContext(), other.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCard)
	s.Require().NoError(err)
	s.Equal(open.ID, result.InvoiceID)
	s.Equal(types.InvoiceStatusPending, s.getInvoice(stale.ID).Status)

	// nothing left on the active subscription
	_, err = s.reconciler.Reconcile(s.GetContext(), other.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCard)
	s.True(ierr.IsNotFound(err))
	s.Equal(types.InvoiceStatusPending, s.getInvoice(stale.ID).Status)
}

func (s *PaymentReconcilerSuite) TestUnknownSubscription() {
	_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, "plan_missing", dec("25.00"), types.PaymentMethodCash)
	s.True(ierr.IsNotFound(err))

	_, err = s.reconciler.Reconcile(s.GetContext(), "cust_missing", s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentReconcilerSuite) TestInvalidInput() {
	_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), "crypto")
	s.True(ierr.IsValidation(err))

	_, err = s.reconciler.Reconcile(s.GetContext(), "", s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentReconcilerSuite) TestReceiptFailureRollsBack() {
	s.GetReceiptIssuer().FailWith(errors.New("typst exited with status 1"))
	rollbacks := s.GetDB().Rollbacks()

	_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Require().Error(err)
	s.True(ierr.IsReceiptGeneration(err))
	s.Equal(rollbacks+1, s.GetDB().Rollbacks())

	inv := s.getInvoice(s.inv.ID)
	s.Equal(types.InvoiceStatusPending, inv.Status)
	s.Nil(inv.PaidAt)
	s.Nil(inv.ReceiptRef)

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Empty(payments)

	// the invoice can still be paid once receipts work again
	s.GetReceiptIssuer().FailWith(nil)
	_, err = s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.NoError(err)
}

// failingReceiptRefRepo fails storing the receipt reference on payments
type failingReceiptRefRepo struct {
	payment.Repository
}

func (r *failingReceiptRefRepo) SetReceiptRef(ctx context.Context, id string, receiptRef string) error {
	return ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
}

func (s *PaymentReconcilerSuite) TestReceiptStoredForRolledBackPaymentIsReported() {
	params := s.params
	params.PaymentRepo = &failingReceiptRefRepo{Repository: s.GetStores().PaymentRepo}

	_, err := NewPaymentReconciler(params).Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrDatabase))

	inv := s.getInvoice(s.inv.ID)
	s.Equal(types.InvoiceStatusPending, inv.Status)
	s.Nil(inv.ReceiptRef)

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Empty(payments)

	s.Len(s.GetReceiptIssuer().Requests(), 1)
	s.Equal(1.0, promtestutil.ToFloat64(s.GetMetrics().ReceiptsIssued.WithLabelValues("orphaned")))
}

func (s *PaymentReconcilerSuite) TestConcurrentPaymentsSettleOnce() {
	const attempts = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		paid     int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				paid++
			case ierr.IsNotFound(err) || ierr.IsAlreadyPaid(err):
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, paid)
	s.Equal(attempts-1, rejected)

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Len(payments, 1)
}

// racingInvoiceRepo pays the invoice behind the reconciler's back right after it was read,
// the way a competing transaction that committed first would
type racingInvoiceRepo struct {
	*testutil.InMemoryInvoiceStore
}

func (r *racingInvoiceRepo) GetOldestPendingForUpdate(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	inv, err := r.InMemoryInvoiceStore.GetOldestPendingForUpdate(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	r.ForceStatus(inv.ID, types.InvoiceStatusPaid)
	return inv, nil
}

func (s *PaymentReconcilerSuite) TestLostRaceIsAlreadyPaid() {
	params := s.params
	params.InvoiceRepo = &racingInvoiceRepo{InMemoryInvoiceStore: s.GetStores().InvoiceRepo}

	_, err := NewPaymentReconciler(params).Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Require().Error(err)
	s.True(ierr.IsAlreadyPaid(err))

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.inv.ID)
	s.NoError(err)
	s.Empty(payments)
	s.Empty(s.GetReceiptIssuer().Requests())
}

func (s *PaymentReconcilerSuite) TestReceiptNumberUsesPaymentYear() {
	s.SetNow(time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC))

	result, err := s.reconciler.Reconcile(s.GetContext(), s.customer.ID, s.plan.ID, dec("25.00"), types.PaymentMethodCash)
	s.Require().NoError(err)
	s.Equal("F2025-001", result.ReceiptNumber)
}
