package storage

import (
	"sort"
	"sync"
	"time"

	"booking-engine/internal/models"
)

// InMemoryStore is a map-backed Store used in tests and local development.
type InMemoryStore struct {
	listings map[string]*models.Listing
	bookings map[string]*models.Booking
	queue    map[string]*models.QueueEntry
	profiles map[string]*models.Profile
	payouts  map[string]*models.Payout
	mutex    sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		listings: make(map[string]*models.Listing),
		bookings: make(map[string]*models.Booking),
		queue:    make(map[string]*models.QueueEntry),
		profiles: make(map[string]*models.Profile),
		payouts:  make(map[string]*models.Payout),
	}
}

func (s *InMemoryStore) SaveListing(listing *models.Listing) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.listings[listing.ListingID] = listing
	return nil
}

func (s *InMemoryStore) GetListing(id string) (*models.Listing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	listing, exists := s.listings[id]
	if !exists {
		return nil, ErrNotFound
	}

	return listing, nil
}

func (s *InMemoryStore) SaveBooking(booking *models.Booking) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.bookings[booking.BookingID] = booking
	return nil
}

func (s *InMemoryStore) GetBooking(id string) (*models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	booking, exists := s.bookings[id]
	if !exists {
		return nil, ErrNotFound
	}

	return booking, nil
}

// FindBooking returns the first booking matching a listing and customer.
// Lookup helper for tests; production code addresses bookings by id.
func (s *InMemoryStore) FindBooking(listingID, customerID string) *models.Booking {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, booking := range s.bookings {
		if booking.ListingID == listingID && booking.CustomerID == customerID {
			return booking
		}
	}

	return nil
}

func (s *InMemoryStore) UpdateBooking(booking *models.Booking) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.bookings[booking.BookingID]; !exists {
		return ErrNotFound
	}

	s.bookings[booking.BookingID] = booking
	return nil
}

func (s *InMemoryStore) CountActiveBookings(listingID string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	for _, booking := range s.bookings {
		if booking.ListingID != listingID {
			continue
		}
		if booking.Status == models.BookingPending || booking.Status == models.BookingConfirmed {
			count++
		}
	}

	return count, nil
}

func (s *InMemoryStore) CreatorEarningsSince(since time.Time) (map[string]float64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	earnings := make(map[string]float64)
	for _, booking := range s.bookings {
		if booking.Status != models.BookingCompleted || booking.UpdatedAt.Before(since) {
			continue
		}
		listing, exists := s.listings[booking.ListingID]
		if !exists {
			continue
		}
		earnings[booking.CreatorID] += listing.Price
	}

	return earnings, nil
}

func (s *InMemoryStore) SaveQueueEntry(entry *models.QueueEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.queue[entry.EntryID] = entry
	return nil
}

func (s *InMemoryStore) GetQueueEntry(listingID, userID string) (*models.QueueEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, entry := range s.queue {
		if entry.ListingID == listingID && entry.UserID == userID && !entry.AutoBooked {
			return entry, nil
		}
	}

	return nil, ErrNotFound
}

func (s *InMemoryStore) ListQueueEntries(listingID string) ([]*models.QueueEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var entries []*models.QueueEntry
	for _, entry := range s.queue {
		if entry.ListingID == listingID && !entry.AutoBooked {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})

	return entries, nil
}

func (s *InMemoryStore) UpdateQueuePositions(listingID string, positions map[string]int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for entryID, position := range positions {
		if entry, exists := s.queue[entryID]; exists && entry.ListingID == listingID {
			entry.Position = position
		}
	}

	return nil
}

func (s *InMemoryStore) MarkQueueEntryAutoBooked(entryID string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.queue[entryID]
	if !exists {
		return ErrNotFound
	}

	entry.AutoBooked = true
	entry.AutoBookedAt = &at
	return nil
}

func (s *InMemoryStore) SaveProfile(profile *models.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.profiles[profile.UserID] = profile
	return nil
}

func (s *InMemoryStore) GetProfile(userID string) (*models.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	profile, exists := s.profiles[userID]
	if !exists {
		return nil, ErrNotFound
	}

	return profile, nil
}

func (s *InMemoryStore) SavePayout(payout *models.Payout) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.payouts[payout.PayoutID] = payout
	return nil
}

func (s *InMemoryStore) GetPayoutByProviderID(providerID string) (*models.Payout, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, payout := range s.payouts {
		if payout.ProviderID == providerID {
			return payout, nil
		}
	}

	return nil, ErrNotFound
}

func (s *InMemoryStore) UpdatePayoutStatus(payoutID string, status models.PayoutStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	payout, exists := s.payouts[payoutID]
	if !exists {
		return ErrNotFound
	}

	payout.Status = status
	payout.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) CountInstantPayoutsSince(creatorID string, since time.Time) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	for _, payout := range s.payouts {
		if payout.CreatorID == creatorID && payout.PayoutType == models.PayoutInstant && !payout.CreatedAt.Before(since) {
			count++
		}
	}

	return count, nil
}
