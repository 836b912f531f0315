package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCanceled  BookingStatus = "canceled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCanceled
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID  string `json:"booking_id" bun:"booking_id,pk"`
	ListingID  string `json:"listing_id" bun:"listing_id"`
	CreatorID  string `json:"creator_id" bun:"creator_id"`
	CustomerID string `json:"customer_id" bun:"customer_id"`
	// Price is the listing price after the customer's membership discount
	// at booking time.
	Price       float64       `json:"price" bun:"price"`
	Status      BookingStatus `json:"status" bun:"status"`
	ScheduledAt time.Time     `json:"scheduled_at" bun:"scheduled_at"`
	CreatedAt   time.Time     `json:"created_at" bun:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" bun:"updated_at"`
}

// BookingRequest is the inbound payload for creating a booking.
type BookingRequest struct {
	ListingID   string    `json:"listing_id" binding:"required"`
	CustomerID  string    `json:"customer_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// TransitionRequest asks for a booking status change on behalf of an actor.
type TransitionRequest struct {
	Target  BookingStatus `json:"target" binding:"required"`
	ActorID string        `json:"actor_id" binding:"required"`
}

// BookingEvent is the Kafka payload published on booking lifecycle changes.
type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	Booking   *Booking  `json:"booking"`
	Timestamp time.Time `json:"timestamp"`
}
