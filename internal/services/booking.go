package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/commission"
	"booking-engine/internal/kafka"
	"booking-engine/internal/logger"
	"booking-engine/internal/models"
	"booking-engine/internal/storage"
	"booking-engine/internal/utils"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrListingInactive   = errors.New("listing is not active")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrNotPermitted      = errors.New("actor is not permitted to perform this transition")
)

// BookingService owns the capacity gate and the booking state machine.
// When a booking request hits a full listing the customer is handed to the
// queue service instead of being rejected.
type BookingService struct {
	store    storage.Store
	queue    *QueueService
	producer *kafka.Producer
	log      *logger.Logger
}

func NewBookingService(store storage.Store, queue *QueueService, producer *kafka.Producer, log *logger.Logger) *BookingService {
	return &BookingService{
		store:    store,
		queue:    queue,
		producer: producer,
		log:      log,
	}
}

// IsCapacityReached reports whether active (pending or confirmed) bookings
// have consumed the listing's declared capacity. This is a point-in-time
// check, not a reservation: two concurrent requests can both observe a free
// slot and both book. See DESIGN.md for why this is accepted as-is.
func (s *BookingService) IsCapacityReached(listingID string, capacity int) (bool, error) {
	count, err := s.store.CountActiveBookings(listingID)
	if err != nil {
		return false, fmt.Errorf("failed to count active bookings: %w", err)
	}

	return count >= capacity, nil
}

// CreateBooking admits a booking request through the capacity gate. On a
// full listing the customer is enqueued and the queue result is returned
// with a nil booking.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.BookingRequest, tier models.Tier) (*models.Booking, *models.QueueResult, error) {
	s.log.LogBooking("REQUEST", req.ListingID, fmt.Sprintf("Booking request from customer %s", req.CustomerID))

	listing, err := s.store.GetListing(req.ListingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrListingNotFound
		}
		return nil, nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if !listing.Active {
		return nil, nil, ErrListingInactive
	}

	full, err := s.IsCapacityReached(listing.ListingID, listing.Capacity)
	if err != nil {
		return nil, nil, err
	}

	if full {
		s.log.LogBooking("FULL", req.ListingID, fmt.Sprintf("Capacity reached, queueing customer %s", req.CustomerID))
		queueResult, err := s.queue.AddToQueue(ctx, listing.ListingID, req.CustomerID, tier)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to join queue: %w", err)
		}
		return nil, queueResult, nil
	}

	now := time.Now()
	scheduledAt := req.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}

	price := commission.CalculateDiscountedPrice(listing.Price, tier, listing.EventTier)

	booking := &models.Booking{
		BookingID:   utils.GenerateBookingID(),
		ListingID:   listing.ListingID,
		CreatorID:   listing.CreatorID,
		CustomerID:  req.CustomerID,
		Price:       price,
		Status:      models.BookingPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveBooking(booking); err != nil {
		s.log.Error("BOOKING", fmt.Sprintf("Failed to save booking for listing %s: %v", listing.ListingID, err))
		return nil, nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.log.LogBooking("CREATED", booking.BookingID, fmt.Sprintf("Booking created for customer %s at %.2f", req.CustomerID, price))
	return booking, nil, nil
}

// GetBooking retrieves one booking by id.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(bookingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

// validTransition is the booking state machine:
// pending -> confirmed -> completed, with cancellation allowed from
// pending and confirmed. Completed and canceled are terminal.
func validTransition(from, to models.BookingStatus) bool {
	switch from {
	case models.BookingPending:
		return to == models.BookingConfirmed || to == models.BookingCanceled
	case models.BookingConfirmed:
		return to == models.BookingCompleted || to == models.BookingCanceled
	default:
		return false
	}
}

// transitionPermitted enforces who may request a transition: only the
// creator confirms or completes, either party may cancel.
func transitionPermitted(booking *models.Booking, to models.BookingStatus, actorID string) bool {
	switch to {
	case models.BookingConfirmed, models.BookingCompleted:
		return actorID == booking.CreatorID
	case models.BookingCanceled:
		return actorID == booking.CreatorID || actorID == booking.CustomerID
	default:
		return false
	}
}

// TransitionBooking applies one state machine step. An invalid source/target
// pair fails with an error naming the pair; it never silently no-ops.
// A transition to canceled triggers queue promotion for the listing as a
// best-effort side effect that cannot fail the cancellation.
func (s *BookingService) TransitionBooking(ctx context.Context, bookingID string, target models.BookingStatus, actorID string) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !validTransition(booking.Status, target) {
		s.log.LogBooking("REJECTED", bookingID, fmt.Sprintf("Invalid transition %s -> %s", booking.Status, target))
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}
	if !transitionPermitted(booking, target, actorID) {
		s.log.LogBooking("REJECTED", bookingID, fmt.Sprintf("Actor %s may not move booking to %s", actorID, target))
		return nil, fmt.Errorf("%w: %s -> %s by %s", ErrNotPermitted, booking.Status, target, actorID)
	}

	booking.Status = target
	booking.UpdatedAt = time.Now()

	if err := s.store.UpdateBooking(booking); err != nil {
		s.log.Error("BOOKING", fmt.Sprintf("Failed to update booking %s: %v", bookingID, err))
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	s.log.LogBooking("TRANSITION", bookingID, fmt.Sprintf("Booking moved to %s", target))
	s.publishBookingEvent("booking."+string(target), booking)

	if target == models.BookingCanceled {
		// Best-effort: a slot just freed up, hand it to the wait-list.
		// Promotion failures are logged inside and never reach this caller.
		s.queue.AutoPromoteFromQueue(ctx, booking.ListingID)
	}

	return booking, nil
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking) {
	event := &models.BookingEvent{
		Type:      eventType,
		BookingID: booking.BookingID,
		Booking:   booking,
		Timestamp: time.Now(),
	}

	if err := s.producer.PublishBookingEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for booking %s: %v", eventType, booking.BookingID, err))
	}
}
