package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/netbill/netbill/internal/temporal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type BillingWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func TestBillingWorkflow(t *testing.T) {
	suite.Run(t, new(BillingWorkflowSuite))
}

func (s *BillingWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflow(BillingCycleWorkflow)
	s.env.RegisterActivityWithOptions(
		func(ctx context.Context, in models.GenerateInvoicesInput) (*models.GenerationSummary, error) {
			return nil, errors.New("not mocked")
		},
		activity.RegisterOptions{Name: models.GenerateInvoicesActivityName},
	)
	s.env.RegisterActivityWithOptions(
		func(ctx context.Context, in models.ProcessOverdueInput) (*models.OverdueSummary, error) {
			return nil, errors.New("not mocked")
		},
		activity.RegisterOptions{Name: models.ProcessOverdueActivityName},
	)
}

func (s *BillingWorkflowSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *BillingWorkflowSuite) TestRunsBothSteps() {
	s.env.OnActivity(models.GenerateInvoicesActivityName, mock.Anything, models.GenerateInvoicesInput{Period: "2024-03"}).
		Return(&models.GenerationSummary{Period: "2024-03", Generated: 3, Skipped: 1}, nil)
	s.env.OnActivity(models.ProcessOverdueActivityName, mock.Anything, models.ProcessOverdueInput{Today: "2024-03-12"}).
		Return(&models.OverdueSummary{Today: "2024-03-12", FeesApplied: 2}, nil)

	s.env.ExecuteWorkflow(BillingCycleWorkflow, models.BillingCycleInput{
		Period:       "2024-03",
		Today:        "2024-03-12",
		GenerateStep: true,
		OverdueStep:  true,
	})

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result models.BillingCycleResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Require().NotNil(result.Generation)
	s.Equal(3, result.Generation.Generated)
	s.Require().NotNil(result.Overdue)
	s.Equal(2, result.Overdue.FeesApplied)
}

func (s *BillingWorkflowSuite) TestOverdueOnly() {
	s.env.OnActivity(models.ProcessOverdueActivityName, mock.Anything, mock.Anything).
		Return(&models.OverdueSummary{Suspended: 1}, nil)

	s.env.ExecuteWorkflow(BillingCycleWorkflow, models.BillingCycleInput{OverdueStep: true})

	s.True(s.env.IsWorkflowCompleted())
	var result models.BillingCycleResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Nil(result.Generation)
	s.Equal(1, result.Overdue.Suspended)
}

func (s *BillingWorkflowSuite) TestConfigurationErrorIsNotRetried() {
	s.env.OnActivity(models.GenerateInvoicesActivityName, mock.Anything, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("missing payment_window_days", "configuration_error", nil)).
		Once()

	s.env.ExecuteWorkflow(BillingCycleWorkflow, models.BillingCycleInput{GenerateStep: true, OverdueStep: true})

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}
