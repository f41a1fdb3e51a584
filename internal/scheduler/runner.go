package scheduler

import (
	"context"

	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/temporal"
	"github.com/netbill/netbill/internal/temporal/models"
	"github.com/netbill/netbill/internal/types"
)

// Runner executes the scheduled billing jobs
type Runner interface {
	GenerateInvoices(ctx context.Context) error
	ProcessOverdue(ctx context.Context) error
}

// NewRunner dispatches the jobs to temporal when a client is connected and
// runs them in process otherwise
func NewRunner(client *temporal.TemporalClient, billing service.BillingService, log *logger.Logger) Runner {
	if client.Enabled() {
		return &workflowRunner{client: client, billing: billing}
	}
	return &inProcessRunner{billing: billing, log: log}
}

type inProcessRunner struct {
	billing service.BillingService
	log     *logger.Logger
}

func (r *inProcessRunner) GenerateInvoices(ctx context.Context) error {
	result, err := r.billing.GenerateMonthlyInvoices(ctx, "")
	if err != nil {
		return err
	}
	r.log.Infow("scheduled invoice generation finished",
		"period", result.Period,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"reason", result.Reason)
	return nil
}

func (r *inProcessRunner) ProcessOverdue(ctx context.Context) error {
	result, err := r.billing.ProcessOverdueInvoices(ctx, r.billing.Today())
	if err != nil {
		return err
	}
	r.log.Infow("scheduled overdue processing finished",
		"today", result.Today.Format(types.DateLayout),
		"fees_applied", result.FeesApplied,
		"suspended", result.Suspended,
		"failed", result.Failed)
	return nil
}

// workflowRunner pins period and day at trigger time so retries of the
// workflow work on the same slot
type workflowRunner struct {
	client  *temporal.TemporalClient
	billing service.BillingService
}

func (r *workflowRunner) GenerateInvoices(ctx context.Context) error {
	_, err := r.client.StartBillingCycle(ctx, models.BillingCycleInput{
		Period:       r.billing.CurrentPeriod().String(),
		GenerateStep: true,
	})
	return err
}

func (r *workflowRunner) ProcessOverdue(ctx context.Context) error {
	_, err := r.client.StartBillingCycle(ctx, models.BillingCycleInput{
		Today:       r.billing.Today().Format(types.DateLayout),
		OverdueStep: true,
	})
	return err
}
