package service

import (
	"context"
	"testing"
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/domain/subscription"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/testutil"
	"github.com/netbill/netbill/internal/types"
	"github.com/stretchr/testify/suite"
)

type OverdueProcessorSuite struct {
	testutil.BaseServiceTestSuite
	billing BillingService
	sub     *subscription.Subscription
	inv     *invoice.Invoice
}

func TestOverdueProcessor(t *testing.T) {
	suite.Run(t, new(OverdueProcessorSuite))
}

// Every test starts with one active subscription and a 25.00 invoice issued
// March 1st, due March 11th. Settings: 5.00 late fee, 15 grace days.
func (s *OverdueProcessorSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.SeedSettings(nil)
	s.billing = newTestBillingService(newTestServiceParams(&s.BaseServiceTestSuite))

	p := s.CreatePlan("basic", "25.00")
	s.sub = s.CreateSubscription(s.CreateCustomer("Ana", "Diaz"), p, types.SubscriptionStatusActive)
	s.inv = createInvoice(&s.BaseServiceTestSuite, s.sub, "2024-03", day(2024, 3, 1), "25.00")
}

func (s *OverdueProcessorSuite) reload() (*invoice.Invoice, *subscription.Subscription) {
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), s.inv.ID)
	s.Require().NoError(err)
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), s.sub.ID)
	s.Require().NoError(err)
	return inv, sub
}

func (s *OverdueProcessorSuite) TestNothingBeforeOrOnDueDate() {
	for _, today := range []int{5, 11} {
		result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 3, today))
		s.NoError(err)
		s.Equal(0, result.FeesApplied)
		s.Equal(0, result.Suspended)
	}

	inv, sub := s.reload()
	s.True(inv.LateFee.IsZero())
	s.True(inv.TotalAmount.Equal(dec("25.00")))
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}

func (s *OverdueProcessorSuite) TestLateFeeAppliedOnce() {
	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 3, 12))
	s.NoError(err)
	s.Equal(1, result.Examined)
	s.Equal(1, result.FeesApplied)
	s.Equal(0, result.Suspended)

	inv, sub := s.reload()
	s.True(inv.LateFee.Equal(dec("5.00")))
	s.True(inv.TotalAmount.Equal(dec("30.00")))
	s.True(inv.TotalAmount.Equal(inv.BaseAmount.Add(inv.LateFee)))
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	// same day and later days never charge again
	for _, today := range []int{12, 13, 20} {
		again, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 3, today))
		s.NoError(err)
		s.Equal(0, again.FeesApplied)
	}

	inv, _ = s.reload()
	s.True(inv.TotalAmount.Equal(dec("30.00")))
}

func (s *OverdueProcessorSuite) TestSuspensionThreshold() {
	// 14 days overdue, one short of the grace period
	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 3, 25))
	s.NoError(err)
	s.Equal(0, result.Suspended)
	_, sub := s.reload()
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	// exactly 15 days overdue
	result, err = s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 3, 26))
	s.NoError(err)
	s.Equal(1, result.Suspended)
	_, sub = s.reload()
	s.Equal(types.SubscriptionStatusSuspended, sub.Status)
	s.NotNil(sub.SuspendedAt)

	again, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 3, 27))
	s.NoError(err)
	s.Equal(0, again.Suspended)
	s.Equal(0, again.FeesApplied)
}

func (s *OverdueProcessorSuite) TestFeeAndSuspensionInOneRun() {
	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 4, 30))
	s.NoError(err)
	s.Equal(1, result.FeesApplied)
	s.Equal(1, result.Suspended)

	inv, sub := s.reload()
	s.True(inv.TotalAmount.Equal(dec("30.00")))
	s.Equal(types.SubscriptionStatusSuspended, sub.Status)
}

func (s *OverdueProcessorSuite) TestSuspendsOncePerSubscription() {
	createInvoice(&s.BaseServiceTestSuite, s.sub, "2024-02", day(2024, 2, 1), "25.00")

	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 4, 30))
	s.NoError(err)
	s.Equal(2, result.Examined)
	s.Equal(2, result.FeesApplied)
	s.Equal(1, result.Suspended)
}

func (s *OverdueProcessorSuite) TestNonActiveSubscriptionIsNotCounted() {
	_, err := s.GetStores().SubscriptionRepo.Suspend(s.GetContext(), s.sub.ID, s.GetNow())
	s.Require().NoError(err)

	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 4, 30))
	s.NoError(err)
	s.Equal(1, result.FeesApplied)
	s.Equal(0, result.Suspended)
}

func (s *OverdueProcessorSuite) TestOnlyPendingInvoicesAreProcessed() {
	s.GetStores().InvoiceRepo.ForceStatus(s.inv.ID, types.InvoiceStatusInReview)

	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 4, 30))
	s.NoError(err)
	s.Equal(0, result.Examined)

	inv, sub := s.reload()
	s.True(inv.LateFee.IsZero())
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}

func (s *OverdueProcessorSuite) TestZeroLateFeeStillSuspends() {
	s.SeedSettings(map[types.SettingKey]string{
		types.SettingKeyLateFeeAmount: "0",
	})

	result, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 4, 30))
	s.NoError(err)
	s.Equal(0, result.FeesApplied)
	s.Equal(1, result.Suspended)
}

func (s *OverdueProcessorSuite) TestMissingSettingsIsConfigurationError() {
	s.GetStores().SettingsRepo.Clear()
	s.GetStores().SettingsRepo.Seed(s.GetContext(), map[types.SettingKey]string{
		types.SettingKeyPaymentWindowDays: "10",
	})

	_, err := s.billing.ProcessOverdueInvoices(s.GetContext(), day(2024, 4, 30))
	s.True(ierr.IsConfiguration(err))

	inv, _ := s.reload()
	s.True(inv.LateFee.IsZero())
}

// failingSuspendRepo fails suspension of one subscription
type failingSuspendRepo struct {
	subscription.Repository
	subscriptionID string
}

func (r *failingSuspendRepo) Suspend(ctx context.Context, id string, at time.Time) (bool, error) {
	if id == r.subscriptionID {
		return false, ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
	}
	return r.Repository.Suspend(ctx, id, at)
}

func (s *OverdueProcessorSuite) TestFailureRollsBackOnlyThatInvoice() {
	other := s.CreateSubscription(s.CreateCustomer("Luis", "Paz"), s.CreatePlan("fiber", "40.00"), types.SubscriptionStatusActive)
	otherInv := createInvoice(&s.BaseServiceTestSuite, other, "2024-03", day(2024, 3, 1), "40.00")

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.SubRepo = &failingSuspendRepo{
		Repository:     s.GetStores().SubscriptionRepo,
		subscriptionID: s.sub.ID,
	}

	bs, err := NewSettingsService(params).LoadBusinessSettings(s.GetContext())
	s.Require().NoError(err)

	result, err := NewOverdueProcessor(params).Process(s.GetContext(), day(2024, 4, 30), bs)
	s.NoError(err)
	s.Equal(2, result.Examined)
	s.Equal(1, result.FeesApplied)
	s.Equal(1, result.Suspended)
	s.Equal(1, result.Failed)

	// the fee of the failing invoice went back with its suspension
	inv, sub := s.reload()
	s.True(inv.LateFee.IsZero())
	s.True(inv.TotalAmount.Equal(dec("25.00")))
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	kept, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), otherInv.ID)
	s.Require().NoError(err)
	s.True(kept.LateFee.Equal(dec("5.00")))
	s.True(kept.TotalAmount.Equal(dec("45.00")))
	suspended, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), other.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, suspended.Status)
}
