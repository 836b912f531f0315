package storage

import (
	"errors"
	"time"

	"booking-engine/internal/models"
)

// ErrNotFound is returned by lookups when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store interface {
	// Listing operations
	SaveListing(listing *models.Listing) error
	GetListing(id string) (*models.Listing, error)

	// Booking operations
	SaveBooking(booking *models.Booking) error
	GetBooking(id string) (*models.Booking, error)
	UpdateBooking(booking *models.Booking) error
	CountActiveBookings(listingID string) (int, error)
	CreatorEarningsSince(since time.Time) (map[string]float64, error)

	// Queue operations
	SaveQueueEntry(entry *models.QueueEntry) error
	GetQueueEntry(listingID, userID string) (*models.QueueEntry, error)
	ListQueueEntries(listingID string) ([]*models.QueueEntry, error)
	UpdateQueuePositions(listingID string, positions map[string]int) error
	MarkQueueEntryAutoBooked(entryID string, at time.Time) error

	// Profile operations
	GetProfile(userID string) (*models.Profile, error)

	// Payout operations
	SavePayout(payout *models.Payout) error
	GetPayoutByProviderID(providerID string) (*models.Payout, error)
	UpdatePayoutStatus(payoutID string, status models.PayoutStatus) error
	CountInstantPayoutsSince(creatorID string, since time.Time) (int, error)
}
