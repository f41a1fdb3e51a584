package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/s3"
	"github.com/netbill/netbill/internal/service"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceReviewService
	documents      s3.Service
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceReviewService, documents s3.Service, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		documents:      documents,
		logger:         logger,
	}
}

// GetInvoice godoc
// @Summary Get an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// ListInvoices godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param filter query dto.ListInvoicesRequest false "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var req dto.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), req.ToFilter())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListInvoicesResponse(invoices))
}

// SubmitPaymentProof godoc
// @Summary Attach a payment proof
// @Description Puts a pending invoice of the customer in review
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param proof body dto.SubmitPaymentProofRequest true "Proof"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/proof [post]
func (h *InvoiceHandler) SubmitPaymentProof(c *gin.Context) {
	var req dto.SubmitPaymentProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	inv, err := h.invoiceService.SubmitPaymentProof(c.Request.Context(), c.Param("id"), req.CustomerID, req.ProofRef)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// ApproveInvoiceReview godoc
// @Summary Approve a payment proof
// @Description Records the payment at the invoice total, marks the invoice paid and issues the receipt
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body dto.ApproveInvoiceReviewRequest false "Approval"
// @Success 200 {object} dto.PaymentResponse
// @Router /invoices/{id}/approve [post]
func (h *InvoiceHandler) ApproveInvoiceReview(c *gin.Context) {
	var req dto.ApproveInvoiceReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	result, err := h.invoiceService.ApproveInvoiceReview(c.Request.Context(), c.Param("id"), req.Method)
	if err != nil {
		h.logger.Errorw("failed to approve invoice review", "invoice_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaymentResponse(result))
}

// RejectInvoiceReview godoc
// @Summary Reject a payment proof
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/reject [post]
func (h *InvoiceHandler) RejectInvoiceReview(c *gin.Context) {
	inv, err := h.invoiceService.RejectInvoiceReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// CancelInvoice godoc
// @Summary Cancel an unpaid invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	inv, err := h.invoiceService.CancelInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// GetReceipt godoc
// @Summary Get the receipt of a paid invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.ReceiptResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id}/receipt [get]
func (h *InvoiceHandler) GetReceipt(c *gin.Context) {
	invoiceID := c.Param("id")
	ref, err := h.invoiceService.GetReceiptRef(c.Request.Context(), invoiceID)
	if err != nil {
		c.Error(err)
		return
	}

	resp := &dto.ReceiptResponse{InvoiceID: invoiceID, ReceiptRef: ref}
	url, err := h.documents.GetPresignedUrl(c.Request.Context(), ref)
	if err != nil {
		// the reference is still useful without a link
		h.logger.Warnw("failed to presign receipt", "invoice_id", invoiceID, "receipt_ref", ref, "error", err)
	} else {
		resp.DownloadURL = url
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadReceipt godoc
// @Summary Download the receipt PDF of a paid invoice
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} file
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id}/receipt/pdf [get]
func (h *InvoiceHandler) DownloadReceipt(c *gin.Context) {
	ref, err := h.invoiceService.GetReceiptRef(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	data, err := h.documents.GetDocument(c.Request.Context(), ref)
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+c.Param("id")+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", data)
}
