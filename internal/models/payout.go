package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PayoutType string

const (
	PayoutBatch   PayoutType = "batch"
	PayoutInstant PayoutType = "instant"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutInTransit PayoutStatus = "in_transit"
	PayoutPaid      PayoutStatus = "paid"
	PayoutFailed    PayoutStatus = "failed"
)

// Payout records one money movement to a creator. Invariant:
// Net = Gross - Commission (both rounded to cents).
type Payout struct {
	bun.BaseModel `bun:"table:payouts"`

	PayoutID   string       `json:"payout_id" bun:"payout_id,pk"`
	CreatorID  string       `json:"creator_id" bun:"creator_id"`
	Gross      float64      `json:"gross" bun:"gross"`
	Commission float64      `json:"commission" bun:"commission"`
	Net        float64      `json:"net" bun:"net"`
	Fee        float64      `json:"fee" bun:"fee"`
	PayoutType PayoutType   `json:"payout_type" bun:"payout_type"`
	ProviderID string       `json:"provider_id" bun:"provider_id"`
	Status     PayoutStatus `json:"status" bun:"status"`
	CreatedAt  time.Time    `json:"created_at" bun:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" bun:"updated_at"`
}

// BatchSummary reports the outcome of one weekly payout run. A per-creator
// failure lands in Errors and does not stop the rest of the batch.
type BatchSummary struct {
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors"`
}

// InstantPayoutResult is the result shape for instant payout requests.
// Business failures are reported here, never as panics.
type InstantPayoutResult struct {
	Success bool    `json:"success"`
	Payout  *Payout `json:"payout,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// InstantPayoutRequest is the inbound payload for an instant payout.
type InstantPayoutRequest struct {
	CreatorID string  `json:"creator_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

// PayoutEvent is the Kafka payload for payout lifecycle changes. Provider
// completion notifications arrive on the payout-status topic in this shape.
type PayoutEvent struct {
	Type       string       `json:"type"`
	PayoutID   string       `json:"payout_id"`
	ProviderID string       `json:"provider_id,omitempty"`
	Status     PayoutStatus `json:"status,omitempty"`
	Payout     *Payout      `json:"payout,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
