package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/models"
	"booking-engine/internal/services"
	"booking-engine/internal/utils"
)

type PayoutHandler struct {
	payoutService *services.PayoutService
}

func NewPayoutHandler(payoutService *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// RunWeeklyBatch triggers the weekly payout run. The scheduler that calls
// this lives outside the service.
func (h *PayoutHandler) RunWeeklyBatch(c *gin.Context) {
	summary, err := h.payoutService.WeeklyPayoutBatch(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Weekly payout batch failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Weekly payout batch completed", summary))
}

// CreateInstantPayout pays a creator on demand, subject to the monthly fee
// schedule. Business failures come back as a 422 with the specific reason.
func (h *PayoutHandler) CreateInstantPayout(c *gin.Context) {
	var req models.InstantPayoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	result := h.payoutService.CreateInstantPayout(c.Request.Context(), req.CreatorID, req.Amount)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, utils.ErrorResponse("Instant payout failed", result.Error))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Instant payout created", result.Payout))
}
