package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/services"
	"booking-engine/internal/utils"
)

type QueueHandler struct {
	queueService *services.QueueService
}

func NewQueueHandler(queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// GetQueuePosition reports where a user sits on a listing's wait-list.
func (h *QueueHandler) GetQueuePosition(c *gin.Context) {
	listingID := c.Param("listing_id")
	userID := c.Query("user_id")
	if listingID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("listing_id and user_id are required", ""))
		return
	}

	position, err := h.queueService.GetQueuePosition(c.Request.Context(), listingID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotInQueue) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("User is not in the queue", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to look up queue position", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Queue position retrieved", gin.H{
		"listing_id":     listingID,
		"user_id":        userID,
		"queue_position": position,
	}))
}
