package models

// Names under which the billing workflow and activities are registered
const (
	BillingCycleWorkflowName = "BillingCycleWorkflow"

	GenerateInvoicesActivityName = "GenerateInvoices"
	ProcessOverdueActivityName   = "ProcessOverdue"
)

// BillingCycleInput selects which billing steps a workflow run performs.
// Empty Period and Today mean the current period and day of the worker.
type BillingCycleInput struct {
	Period       string `json:"period,omitempty"`
	Today        string `json:"today,omitempty"`
	GenerateStep bool   `json:"generate_step"`
	OverdueStep  bool   `json:"overdue_step"`
}

// GenerateInvoicesInput is the input of the generation activity
type GenerateInvoicesInput struct {
	Period string `json:"period,omitempty"`
}

// GenerationSummary mirrors the counters of one generation run
type GenerationSummary struct {
	Period    string `json:"period"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Reason    string `json:"reason,omitempty"`
}

// ProcessOverdueInput is the input of the overdue activity, Today formatted YYYY-MM-DD
type ProcessOverdueInput struct {
	Today string `json:"today,omitempty"`
}

// OverdueSummary mirrors the counters of one overdue run
type OverdueSummary struct {
	Today       string `json:"today"`
	FeesApplied int    `json:"fees_applied"`
	Suspended   int    `json:"suspended"`
	Failed      int    `json:"failed"`
}

// BillingCycleResult is returned by the billing cycle workflow
type BillingCycleResult struct {
	Generation *GenerationSummary `json:"generation,omitempty"`
	Overdue    *OverdueSummary    `json:"overdue,omitempty"`
}
