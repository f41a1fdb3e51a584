package dto

import (
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/validator"
	"github.com/shopspring/decimal"
)

// GenerateInvoicesRequest triggers invoice generation, for the current period when Period is empty
type GenerateInvoicesRequest struct {
	Period string `json:"period,omitempty" validate:"omitempty,datetime=2006-01"`
}

func (r *GenerateInvoicesRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type GenerateInvoicesResponse struct {
	Period    string `json:"period"`
	IssueDate string `json:"issue_date,omitempty"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Reason    string `json:"reason,omitempty"`
}

func NewGenerateInvoicesResponse(r *service.GenerateResult) *GenerateInvoicesResponse {
	resp := &GenerateInvoicesResponse{
		Period:    r.Period.String(),
		Generated: r.Generated,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		Reason:    r.Reason,
	}
	if !r.IssueDate.IsZero() {
		resp.IssueDate = r.IssueDate.Format(types.DateLayout)
	}
	return resp
}

// ProcessOverdueRequest triggers overdue processing, for the current day when Today is empty
type ProcessOverdueRequest struct {
	Today string `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r *ProcessOverdueRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// Day parses Today, zero when empty
func (r *ProcessOverdueRequest) Day() (time.Time, error) {
	if r.Today == "" {
		return time.Time{}, nil
	}
	return types.ParseDate(r.Today)
}

type ProcessOverdueResponse struct {
	Today       string `json:"today"`
	Examined    int    `json:"examined"`
	FeesApplied int    `json:"fees_applied"`
	Suspended   int    `json:"suspended"`
	Failed      int    `json:"failed"`
}

func NewProcessOverdueResponse(r *service.ProcessResult) *ProcessOverdueResponse {
	return &ProcessOverdueResponse{
		Today:       r.Today.Format(types.DateLayout),
		Examined:    r.Examined,
		FeesApplied: r.FeesApplied,
		Suspended:   r.Suspended,
		Failed:      r.Failed,
	}
}

type ReconcilePaymentRequest struct {
	CustomerID string              `json:"customer_id" validate:"required"`
	PlanID     string              `json:"plan_id" validate:"required"`
	Amount     decimal.Decimal     `json:"amount" swaggertype:"string"`
	Method     types.PaymentMethod `json:"method" validate:"required"`
}

func (r *ReconcilePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return r.Method.Validate()
}

type PaymentResponse struct {
	PaymentID     string `json:"payment_id"`
	InvoiceID     string `json:"invoice_id"`
	ReceiptNumber string `json:"receipt_number"`
	ReceiptRef    string `json:"receipt_ref"`
	TotalPaid     string `json:"total_paid"`
	PaidAt        string `json:"paid_at"`
}

func NewPaymentResponse(r *service.PaymentResult) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:     r.PaymentID,
		InvoiceID:     r.InvoiceID,
		ReceiptNumber: r.ReceiptNumber,
		ReceiptRef:    r.ReceiptRef,
		TotalPaid:     r.TotalPaid.StringFixed(2),
		PaidAt:        r.PaidAt.UTC().Format(time.RFC3339),
	}
}
