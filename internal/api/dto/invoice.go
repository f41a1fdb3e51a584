package dto

import (
	"github.com/netbill/netbill/internal/domain/invoice"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/validator"
	"github.com/samber/lo"
)

type InvoiceResponse struct {
	*invoice.Invoice
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}

type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

func NewListInvoicesResponse(invoices []*invoice.Invoice) *ListInvoicesResponse {
	return &ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *InvoiceResponse {
			return NewInvoiceResponse(inv)
		}),
		Total: len(invoices),
	}
}

// ListInvoicesRequest is bound from the query string
type ListInvoicesRequest struct {
	SubscriptionID string   `form:"subscription_id"`
	CustomerID     string   `form:"customer_id"`
	BillingPeriod  string   `form:"billing_period" validate:"omitempty,datetime=2006-01"`
	Statuses       []string `form:"status"`
	Limit          int      `form:"limit" validate:"omitempty,min=1,max=500"`
}

func (r *ListInvoicesRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *ListInvoicesRequest) ToFilter() *types.InvoiceFilter {
	return &types.InvoiceFilter{
		SubscriptionID: r.SubscriptionID,
		CustomerID:     r.CustomerID,
		BillingPeriod:  types.BillingPeriod(r.BillingPeriod),
		Statuses: lo.Map(r.Statuses, func(s string, _ int) types.InvoiceStatus {
			return types.InvoiceStatus(s)
		}),
		Limit: r.Limit,
	}
}

type SubmitPaymentProofRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	ProofRef   string `json:"proof_ref" validate:"required"`
}

func (r *SubmitPaymentProofRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ApproveInvoiceReviewRequest approves a payment proof, bank transfer when Method is empty
type ApproveInvoiceReviewRequest struct {
	Method types.PaymentMethod `json:"method,omitempty"`
}

func (r *ApproveInvoiceReviewRequest) Validate() error {
	if r.Method == "" {
		return nil
	}
	return r.Method.Validate()
}

type ReceiptResponse struct {
	InvoiceID  string `json:"invoice_id"`
	ReceiptRef string `json:"receipt_ref"`
	// DownloadURL is a short lived link to the stored receipt document
	DownloadURL string `json:"download_url,omitempty"`
}
