package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/temporal"
	"github.com/netbill/netbill/internal/temporal/models"
	"github.com/netbill/netbill/internal/types"
)

// BillingHandler exposes the billing jobs to external cron runners
type BillingHandler struct {
	billing  service.BillingService
	temporal *temporal.TemporalClient
	logger   *logger.Logger
}

func NewBillingHandler(billing service.BillingService, temporal *temporal.TemporalClient, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billing:  billing,
		temporal: temporal,
		logger:   logger,
	}
}

// WorkflowStartedResponse is returned when a job was handed to temporal
type WorkflowStartedResponse struct {
	WorkflowID string `json:"workflow_id"`
}

// GenerateInvoices godoc
// @Summary Run invoice generation
// @Description Invoices every active subscription for the period. With async=true the run is handed to temporal.
// @Tags Cron
// @Accept json
// @Produce json
// @Param request body dto.GenerateInvoicesRequest false "Period"
// @Param async query bool false "Dispatch to temporal"
// @Success 200 {object} dto.GenerateInvoicesResponse
// @Success 202 {object} WorkflowStartedResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /cron/invoices/generate [post]
func (h *BillingHandler) GenerateInvoices(c *gin.Context) {
	var req dto.GenerateInvoicesRequest
	if !bindOptional(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	period := h.billing.CurrentPeriod().String()
	if req.Period != "" {
		period = req.Period
	}
	h.logger.Infow("invoice generation triggered", "period", period)

	if c.Query("async") == "true" {
		h.dispatch(c, models.BillingCycleInput{Period: period, GenerateStep: true})
		return
	}

	result, err := h.billing.GenerateMonthlyInvoices(c.Request.Context(), types.BillingPeriod(period))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGenerateInvoicesResponse(result))
}

// ProcessOverdue godoc
// @Summary Run overdue processing
// @Description Applies late fees and suspends long overdue subscriptions. With async=true the run is handed to temporal.
// @Tags Cron
// @Accept json
// @Produce json
// @Param request body dto.ProcessOverdueRequest false "Day"
// @Param async query bool false "Dispatch to temporal"
// @Success 200 {object} dto.ProcessOverdueResponse
// @Success 202 {object} WorkflowStartedResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /cron/invoices/overdue [post]
func (h *BillingHandler) ProcessOverdue(c *gin.Context) {
	var req dto.ProcessOverdueRequest
	if !bindOptional(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}
	today, err := req.Day()
	if err != nil {
		c.Error(err)
		return
	}
	if today.IsZero() {
		today = h.billing.Today()
	}
	h.logger.Infow("overdue processing triggered", "today", today)

	if c.Query("async") == "true" {
		h.dispatch(c, models.BillingCycleInput{Today: today.Format(types.DateLayout), OverdueStep: true})
		return
	}

	result, err := h.billing.ProcessOverdueInvoices(c.Request.Context(), today)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProcessOverdueResponse(result))
}

func (h *BillingHandler) dispatch(c *gin.Context, input models.BillingCycleInput) {
	id, err := h.temporal.StartBillingCycle(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, WorkflowStartedResponse{WorkflowID: id})
}

// bindOptional binds a JSON body when one was sent. Cron runners usually post nothing.
func bindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request parameters").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}
