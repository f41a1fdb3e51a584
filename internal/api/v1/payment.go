package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
)

type PaymentHandler struct {
	billing service.BillingService
	logger  *logger.Logger
}

func NewPaymentHandler(billing service.BillingService, logger *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		billing: billing,
		logger:  logger,
	}
}

// ReconcilePayment godoc
// @Summary Reconcile a customer payment
// @Description Settles the oldest pending invoice of the customer's subscription to the plan when the amount matches its total exactly
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body dto.ReconcilePaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /payments/reconcile [post]
func (h *PaymentHandler) ReconcilePayment(c *gin.Context) {
	var req dto.ReconcilePaymentRequest
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

	result, err := h.billing.ReconcilePayment(c.Request.Context(), req.CustomerID, req.PlanID, req.Amount, req.Method)
	if err != nil {
		h.logger.Errorw("failed to reconcile payment",
			"customer_id", req.CustomerID,
			"plan_id", req.PlanID,
			"amount", req.Amount.String(),
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewPaymentResponse(result))
}
