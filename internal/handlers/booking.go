package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-engine/internal/models"
	"booking-engine/internal/services"
	"booking-engine/internal/storage"
	"booking-engine/internal/utils"
)

type BookingHandler struct {
	bookingService *services.BookingService
	store          storage.Store
}

func NewBookingHandler(bookingService *services.BookingService, store storage.Store) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		store:          store,
	}
}

// CreateBooking admits a booking request. On a full listing the caller gets
// a 202 with their queue position instead of a booking.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.BookingRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	tier := h.customerTier(req.CustomerID)

	booking, queued, err := h.bookingService.CreateBooking(c.Request.Context(), &req, tier)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrListingNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Listing not found", err.Error()))
		case errors.Is(err, services.ErrListingInactive):
			c.JSON(http.StatusConflict, utils.ErrorResponse("Listing is not accepting bookings", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Booking failed", err.Error()))
		}
		return
	}

	if queued != nil {
		c.JSON(http.StatusAccepted, utils.SuccessResponse("Listing is full, you have been added to the queue", queued))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Booking created", booking))
}

// GetBooking returns one booking by id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID := c.Param("id")
	if bookingID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Booking ID is required", ""))
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve booking", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Booking retrieved", booking))
}

// TransitionBooking applies one booking state machine step on behalf of the
// requesting actor.
func (h *BookingHandler) TransitionBooking(c *gin.Context) {
	bookingID := c.Param("id")
	if bookingID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Booking ID is required", ""))
		return
	}

	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid transition request", err.Error()))
		return
	}

	booking, err := h.bookingService.TransitionBooking(c.Request.Context(), bookingID, req.Target, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
		case errors.Is(err, services.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid status transition", err.Error()))
		case errors.Is(err, services.ErrNotPermitted):
			c.JSON(http.StatusForbidden, utils.ErrorResponse("Transition not permitted for this actor", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Transition failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Booking updated", booking))
}

// customerTier resolves the requesting customer's membership tier.
// Missing profiles get silver (no priority, no discount) semantics.
func (h *BookingHandler) customerTier(customerID string) models.Tier {
	profile, err := h.store.GetProfile(customerID)
	if err != nil {
		return models.TierSilver
	}
	return profile.Tier
}
