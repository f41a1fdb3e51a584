package workflows

import (
	"time"

	"github.com/netbill/netbill/internal/temporal/models"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BillingCycleWorkflow runs invoice generation and then overdue processing.
// Both activities are idempotent so the whole workflow can be retried safely.
func BillingCycleWorkflow(ctx workflow.Context, input models.BillingCycleInput) (*models.BillingCycleResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting billing cycle workflow", "period", input.Period, "today", input.Today)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute * 30,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second * 5,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute * 5,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	result := &models.BillingCycleResult{}

	if input.GenerateStep {
		var generation models.GenerationSummary
		err := workflow.ExecuteActivity(ctx, models.GenerateInvoicesActivityName, models.GenerateInvoicesInput{
			Period: input.Period,
		}).Get(ctx, &generation)
		if err != nil {
			logger.Error("Invoice generation failed", "error", err)
			return nil, err
		}
		result.Generation = &generation
	}

	if input.OverdueStep {
		var overdue models.OverdueSummary
		err := workflow.ExecuteActivity(ctx, models.ProcessOverdueActivityName, models.ProcessOverdueInput{
			Today: input.Today,
		}).Get(ctx, &overdue)
		if err != nil {
			logger.Error("Overdue processing failed", "error", err)
			return nil, err
		}
		result.Overdue = &overdue
	}

	logger.Info("Billing cycle workflow completed")
	return result, nil
}
