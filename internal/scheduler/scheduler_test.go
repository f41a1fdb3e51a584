package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netbill/netbill/internal/config"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/temporal"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockBillingService struct {
	mock.Mock
}

func (m *mockBillingService) GenerateMonthlyInvoices(ctx context.Context, period types.BillingPeriod) (*service.GenerateResult, error) {
	args := m.Called(ctx, period)
	if r, ok := args.Get(0).(*service.GenerateResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillingService) ProcessOverdueInvoices(ctx context.Context, today time.Time) (*service.ProcessResult, error) {
	args := m.Called(ctx, today)
	if r, ok := args.Get(0).(*service.ProcessResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillingService) ReconcilePayment(ctx context.Context, customerID, planID string, amount decimal.Decimal, method types.PaymentMethod) (*service.PaymentResult, error) {
	args := m.Called(ctx, customerID, planID, amount, method)
	if r, ok := args.Get(0).(*service.PaymentResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillingService) Today() time.Time {
	return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
}

func (m *mockBillingService) CurrentPeriod() types.BillingPeriod {
	return types.BillingPeriod("2024-03")
}

type countingRunner struct {
	generate atomic.Int32
	overdue  atomic.Int32
	err      error
}

func (r *countingRunner) GenerateInvoices(ctx context.Context) error {
	r.generate.Add(1)
	return r.err
}

func (r *countingRunner) ProcessOverdue(ctx context.Context) error {
	r.overdue.Add(1)
	return r.err
}

type SchedulerSuite struct {
	suite.Suite
	cfg *config.Configuration
	log *logger.Logger
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()
	s.cfg.Billing.SchedulerEnabled = true
	s.cfg.Billing.InvoiceSchedule = "0 6 1 * *"
	s.cfg.Billing.OverdueSchedule = "30 6 * * *"
	s.log = logger.NewNoopLogger()
}

func (s *SchedulerSuite) newScheduler(runner Runner) *Scheduler {
	return New(Params{
		Config:  s.cfg,
		Runner:  runner,
		Logger:  s.log,
		Metrics: metrics.NewNoopMetrics(),
	})
}

func (s *SchedulerSuite) TestStartRegistersBothJobs() {
	sched := s.newScheduler(&countingRunner{})
	s.Require().NoError(sched.Start())
	defer sched.Stop(context.Background())

	entries := sched.Entries()
	s.Len(entries, 2)
	s.Contains(entries, JobGenerateInvoices)
	s.Contains(entries, JobProcessOverdue)
	s.Equal(1, entries[JobGenerateInvoices].Day())
	s.Equal(6, entries[JobGenerateInvoices].Hour())
}

func (s *SchedulerSuite) TestDisabledSchedulesNothing() {
	s.cfg.Billing.SchedulerEnabled = false
	sched := s.newScheduler(&countingRunner{})
	s.Require().NoError(sched.Start())
	s.Empty(sched.Entries())
	s.NoError(sched.Stop(context.Background()))
}

func (s *SchedulerSuite) TestEmptyScheduleSkipsJob() {
	s.cfg.Billing.OverdueSchedule = ""
	sched := s.newScheduler(&countingRunner{})
	s.Require().NoError(sched.Start())
	defer sched.Stop(context.Background())

	entries := sched.Entries()
	s.Len(entries, 1)
	s.Contains(entries, JobGenerateInvoices)
}

func (s *SchedulerSuite) TestInvalidScheduleIsConfigurationError() {
	s.cfg.Billing.InvoiceSchedule = "every monday"
	sched := s.newScheduler(&countingRunner{})
	err := sched.Start()
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *SchedulerSuite) TestRunSwallowsJobErrors() {
	runner := &countingRunner{err: errors.New("boom")}
	sched := s.newScheduler(runner)

	s.NotPanics(func() {
		sched.run(JobGenerateInvoices, runner.GenerateInvoices)
		sched.run(JobProcessOverdue, runner.ProcessOverdue)
	})
	s.EqualValues(1, runner.generate.Load())
	s.EqualValues(1, runner.overdue.Load())
}

func (s *SchedulerSuite) TestStopIsIdempotent() {
	sched := s.newScheduler(&countingRunner{})
	s.Require().NoError(sched.Start())
	s.NoError(sched.Stop(context.Background()))
	s.NoError(sched.Stop(context.Background()))
}

func (s *SchedulerSuite) TestInProcessRunnerUsesCurrentPeriodAndDay() {
	billing := new(mockBillingService)
	billing.On("GenerateMonthlyInvoices", mock.Anything, types.BillingPeriod("")).
		Return(&service.GenerateResult{Period: "2024-03", Generated: 2}, nil).Once()
	billing.On("ProcessOverdueInvoices", mock.Anything, billing.Today()).
		Return(&service.ProcessResult{Today: billing.Today(), FeesApplied: 1}, nil).Once()

	runner := NewRunner(&temporal.TemporalClient{}, billing, s.log)
	s.IsType(&inProcessRunner{}, runner)

	s.NoError(runner.GenerateInvoices(context.Background()))
	s.NoError(runner.ProcessOverdue(context.Background()))
	billing.AssertExpectations(s.T())
}

func (s *SchedulerSuite) TestInProcessRunnerPropagatesErrors() {
	billing := new(mockBillingService)
	billing.On("GenerateMonthlyInvoices", mock.Anything, types.BillingPeriod("")).
		Return(nil, ierr.NewError("missing payment window").Mark(ierr.ErrConfiguration)).Once()

	runner := NewRunner(&temporal.TemporalClient{}, billing, s.log)
	err := runner.GenerateInvoices(context.Background())
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *SchedulerSuite) TestAPIModeSchedulesNothing() {
	s.cfg.Deployment.Mode = types.ModeAPI
	sched := s.newScheduler(&countingRunner{})
	s.Require().NoError(sched.Start())
	s.Empty(sched.Entries())
}
