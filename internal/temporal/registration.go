package temporal

import (
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/temporal/activities"
	"github.com/netbill/netbill/internal/temporal/models"
	"github.com/netbill/netbill/internal/temporal/workflows"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// RegisterWorkflowsAndActivities registers the billing workflow and its activities with a Temporal worker.
func RegisterWorkflowsAndActivities(w worker.Registry, billing service.BillingService) {
	w.RegisterWorkflowWithOptions(workflows.BillingCycleWorkflow, workflow.RegisterOptions{
		Name: models.BillingCycleWorkflowName,
	})

	billingActivities := activities.NewBillingActivities(billing)
	w.RegisterActivityWithOptions(billingActivities.GenerateInvoices, activity.RegisterOptions{
		Name: models.GenerateInvoicesActivityName,
	})
	w.RegisterActivityWithOptions(billingActivities.ProcessOverdue, activity.RegisterOptions{
		Name: models.ProcessOverdueActivityName,
	})
}
