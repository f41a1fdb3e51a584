package internal

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/types"
)

// RunBilling runs one generation and one overdue pass, for backfills and manual recovery
func RunBilling() error {
	var period types.BillingPeriod
	if s := os.Getenv("BILLING_PERIOD"); s != "" {
		p, err := types.ParseBillingPeriod(s)
		if err != nil {
			return err
		}
		period = p
	}

	var today time.Time
	if s := os.Getenv("BILLING_TODAY"); s != "" {
		t, err := types.ParseDate(s)
		if err != nil {
			return err
		}
		today = t
	}

	deps, err := newScriptDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	p := deps.params
	settingsService := service.NewSettingsService(p)
	billing := service.NewBillingService(
		p,
		settingsService,
		service.NewInvoiceGenerator(p),
		service.NewOverdueProcessor(p),
		service.NewPaymentReconciler(p),
	)

	ctx := types.SetUserID(context.Background(), "billing-script")

	generated, err := billing.GenerateMonthlyInvoices(ctx, period)
	if err != nil {
		return err
	}
	log.Printf("period %s: generated %d, skipped %d, failed %d %s\n",
		generated.Period, generated.Generated, generated.Skipped, generated.Failed, generated.Reason)

	overdue, err := billing.ProcessOverdueInvoices(ctx, today)
	if err != nil {
		return err
	}
	log.Printf("day %s: examined %d, late fees %d, suspended %d, failed %d\n",
		overdue.Today.Format(types.DateLayout), overdue.Examined, overdue.FeesApplied, overdue.Suspended, overdue.Failed)

	return nil
}
