package activities

import (
	"context"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/temporal/models"
	"github.com/netbill/netbill/internal/types"
	"go.temporal.io/sdk/temporal"
)

// BillingActivities runs the billing jobs on behalf of the billing cycle workflow
type BillingActivities struct {
	billing service.BillingService
}

func NewBillingActivities(billing service.BillingService) *BillingActivities {
	return &BillingActivities{billing: billing}
}

func (a *BillingActivities) GenerateInvoices(ctx context.Context, input models.GenerateInvoicesInput) (*models.GenerationSummary, error) {
	result, err := a.billing.GenerateMonthlyInvoices(ctx, types.BillingPeriod(input.Period))
	if err != nil {
		return nil, toActivityError(err)
	}
	return &models.GenerationSummary{
		Period:    result.Period.String(),
		Generated: result.Generated,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		Reason:    result.Reason,
	}, nil
}

func (a *BillingActivities) ProcessOverdue(ctx context.Context, input models.ProcessOverdueInput) (*models.OverdueSummary, error) {
	var today time.Time
	if input.Today != "" {
		t, err := types.ParseDate(input.Today)
		if err != nil {
			return nil, toActivityError(err)
		}
		today = t
	}

	result, err := a.billing.ProcessOverdueInvoices(ctx, today)
	if err != nil {
		return nil, toActivityError(err)
	}
	return &models.OverdueSummary{
		Today:       result.Today.Format(types.DateLayout),
		FeesApplied: result.FeesApplied,
		Suspended:   result.Suspended,
		Failed:      result.Failed,
	}, nil
}

// toActivityError stops temporal from retrying errors a retry cannot fix
func toActivityError(err error) error {
	switch {
	case ierr.IsConfiguration(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), ierr.ErrCodeConfiguration, err)
	case ierr.IsValidation(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), ierr.ErrCodeValidation, err)
	default:
		return err
	}
}
