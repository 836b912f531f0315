package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Listing struct {
	bun.BaseModel `bun:"table:listings"`

	ListingID string    `json:"listing_id" bun:"listing_id,pk"`
	CreatorID string    `json:"creator_id" bun:"creator_id"`
	Title     string    `json:"title" bun:"title"`
	Price     float64   `json:"price" bun:"price"`
	Capacity  int       `json:"capacity" bun:"capacity"`
	EventTier EventTier `json:"event_tier" bun:"event_tier"`
	Active    bool      `json:"active" bun:"active"`
	CreatedAt time.Time `json:"created_at" bun:"created_at"`
}
