package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Profile holds the marketplace identity of a user. Creators additionally
// carry a payout destination (connected account id at the payout provider).
type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	UserID        string    `json:"user_id" bun:"user_id,pk"`
	Email         string    `json:"email" bun:"email"`
	Tier          Tier      `json:"tier" bun:"tier"`
	PayoutAccount string    `json:"payout_account" bun:"payout_account"`
	CreatedAt     time.Time `json:"created_at" bun:"created_at"`
}
