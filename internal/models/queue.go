package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QueueEntry is one waiting customer on a listing's wait-list. Positions of
// non-auto-booked entries for a listing are contiguous ascending from 1.
// Promoted entries are retained with AutoBooked=true as a historical record.
type QueueEntry struct {
	bun.BaseModel `bun:"table:booking_queue"`

	EntryID      string     `json:"entry_id" bun:"entry_id,pk"`
	ListingID    string     `json:"listing_id" bun:"listing_id"`
	UserID       string     `json:"user_id" bun:"user_id"`
	Position     int        `json:"position" bun:"position"`
	AutoBooked   bool       `json:"auto_booked" bun:"auto_booked"`
	AutoBookedAt *time.Time `json:"auto_booked_at,omitempty" bun:"auto_booked_at,nullzero"`
	CreatedAt    time.Time  `json:"created_at" bun:"created_at"`
}

// QueueResult is returned to a customer who landed on the wait-list.
type QueueResult struct {
	QueuePosition int    `json:"queue_position"`
	EstimatedWait string `json:"estimated_wait,omitempty"`
}

// QueueEvent is the Kafka payload published when a waiter is promoted.
type QueueEvent struct {
	Type      string    `json:"type"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id"`
	BookingID string    `json:"booking_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
