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
	"booking-engine/internal/notify"
	"booking-engine/internal/storage"
	"booking-engine/internal/utils"
)

var (
	ErrNotInQueue    = errors.New("user is not in the queue")
	ErrQueueLockBusy = errors.New("queue is busy, try again")
)

const (
	lockRetryInterval = 20 * time.Millisecond
	lockRetryLimit    = 50
)

// QueueService maintains the per-listing wait-list: priority insertion,
// cancellation-triggered promotion and position renumbering. All position
// mutations for one listing run under the per-listing queue lock.
type QueueService struct {
	store    storage.Store
	locker   QueueLocker
	producer *kafka.Producer
	notifier *notify.Notifier
	log      *logger.Logger
}

func NewQueueService(store storage.Store, locker QueueLocker, producer *kafka.Producer, notifier *notify.Notifier, log *logger.Logger) *QueueService {
	return &QueueService{
		store:    store,
		locker:   locker,
		producer: producer,
		notifier: notifier,
		log:      log,
	}
}

// withQueueLock runs fn while holding the listing's queue lock, retrying
// acquisition briefly before giving up.
func (s *QueueService) withQueueLock(listingID string, fn func() error) error {
	acquired := false
	for i := 0; i < lockRetryLimit; i++ {
		ok, err := s.locker.AcquireQueueLock(listingID)
		if err != nil {
			return fmt.Errorf("failed to acquire queue lock: %w", err)
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(lockRetryInterval)
	}
	if !acquired {
		s.log.Warn("QUEUE", fmt.Sprintf("Could not acquire queue lock for listing %s", listingID))
		return ErrQueueLockBusy
	}
	defer func() {
		if err := s.locker.ReleaseQueueLock(listingID); err != nil {
			s.log.Error("QUEUE", fmt.Sprintf("Failed to release queue lock for listing %s: %v", listingID, err))
		}
	}()

	return fn()
}

// AddToQueue places a user on the listing's wait-list. Gold and platinum
// members are inserted at position 1, shifting every existing entry down;
// everyone else appends at the tail. A repeat request from a user already
// queued is idempotent and returns the existing position.
func (s *QueueService) AddToQueue(ctx context.Context, listingID, userID string, tier models.Tier) (*models.QueueResult, error) {
	s.log.LogQueue("ENQUEUE", listingID, fmt.Sprintf("User %s (tier %s) joining queue", userID, tier))

	var result *models.QueueResult
	err := s.withQueueLock(listingID, func() error {
		existing, err := s.store.GetQueueEntry(listingID, userID)
		if err == nil {
			s.log.LogQueue("DUPLICATE", listingID, fmt.Sprintf("User %s already queued at position %d", userID, existing.Position))
			result = queueResult(existing.Position)
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to check existing queue entry: %w", err)
		}

		entries, err := s.store.ListQueueEntries(listingID)
		if err != nil {
			return fmt.Errorf("failed to load queue: %w", err)
		}

		position := 1
		if !tier.IsPriority() && len(entries) > 0 {
			position = entries[len(entries)-1].Position + 1
		}

		entry := &models.QueueEntry{
			EntryID:   utils.GenerateQueueEntryID(),
			ListingID: listingID,
			UserID:    userID,
			Position:  position,
			CreatedAt: time.Now(),
		}
		if err := s.store.SaveQueueEntry(entry); err != nil {
			return fmt.Errorf("failed to save queue entry: %w", err)
		}

		if tier.IsPriority() && len(entries) > 0 {
			// The priority entrant lands at position 1 and everyone already
			// waiting moves down one slot. The new head is saved before the
			// shift: a failure at either step still leaves an entry at
			// position 1, never a queue starting at 2. Among successive
			// priority entrants the most recent one wins the head slot.
			shifted := make(map[string]int, len(entries))
			for _, prior := range entries {
				shifted[prior.EntryID] = prior.Position + 1
			}
			if err := s.store.UpdateQueuePositions(listingID, shifted); err != nil {
				return fmt.Errorf("failed to shift queue positions: %w", err)
			}
			s.log.LogQueue("PRIORITY", listingID, fmt.Sprintf("Priority insertion for user %s, %d entries shifted", userID, len(entries)))
		}

		s.log.LogQueue("QUEUED", listingID, fmt.Sprintf("User %s queued at position %d", userID, position))
		result = queueResult(position)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// queueResult builds the position response with the estimated-wait label:
// "soon" for the first three slots, a linear 2-hours-per-slot estimate after.
func queueResult(position int) *models.QueueResult {
	wait := "soon"
	if position > 3 {
		wait = fmt.Sprintf("%d hours", position*2)
	}
	return &models.QueueResult{
		QueuePosition: position,
		EstimatedWait: wait,
	}
}

// AutoPromoteFromQueue converts the head of the wait-list into a confirmed
// booking after a cancellation freed a slot. Every failure is logged and
// swallowed: promotion is best-effort and must never fail the cancellation
// that triggered it.
func (s *QueueService) AutoPromoteFromQueue(ctx context.Context, listingID string) {
	if err := s.promote(ctx, listingID); err != nil {
		s.log.Error("QUEUE", fmt.Sprintf("Promotion failed for listing %s: %v", listingID, err))
	}
}

func (s *QueueService) promote(ctx context.Context, listingID string) error {
	return s.withQueueLock(listingID, func() error {
		entries, err := s.store.ListQueueEntries(listingID)
		if err != nil {
			return fmt.Errorf("failed to load queue: %w", err)
		}
		if len(entries) == 0 {
			s.log.LogQueue("EMPTY", listingID, "No one waiting, nothing to promote")
			return nil
		}

		head := entries[0]
		listing, err := s.store.GetListing(listingID)
		if err != nil {
			return fmt.Errorf("failed to load listing: %w", err)
		}

		// Price the booking with the promoted user's membership discount.
		// A missing profile gets no discount.
		price := listing.Price
		if profile, err := s.store.GetProfile(head.UserID); err == nil {
			price = commission.CalculateDiscountedPrice(listing.Price, profile.Tier, listing.EventTier)
		}

		now := time.Now()
		booking := &models.Booking{
			BookingID:   utils.GenerateBookingID(),
			ListingID:   listingID,
			CreatorID:   listing.CreatorID,
			CustomerID:  head.UserID,
			Price:       price,
			Status:      models.BookingConfirmed,
			ScheduledAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.SaveBooking(booking); err != nil {
			return fmt.Errorf("failed to create promoted booking: %w", err)
		}

		if err := s.store.MarkQueueEntryAutoBooked(head.EntryID, now); err != nil {
			return fmt.Errorf("failed to retire queue entry: %w", err)
		}

		// Renumber the remainder back to a contiguous 1..n, preserving order.
		if len(entries) > 1 {
			renumbered := make(map[string]int, len(entries)-1)
			for i, entry := range entries[1:] {
				renumbered[entry.EntryID] = i + 1
			}
			if err := s.store.UpdateQueuePositions(listingID, renumbered); err != nil {
				return fmt.Errorf("failed to renumber queue: %w", err)
			}
		}

		s.log.LogQueue("PROMOTED", listingID, fmt.Sprintf("User %s promoted to booking %s", head.UserID, booking.BookingID))

		s.publishPromotion(listingID, head.UserID, booking.BookingID)
		s.notifyPromotion(head.UserID, listing.Title)
		return nil
	})
}

// GetQueuePosition returns the user's current position on the wait-list,
// or ErrNotInQueue when they hold no active entry.
func (s *QueueService) GetQueuePosition(ctx context.Context, listingID, userID string) (int, error) {
	entry, err := s.store.GetQueueEntry(listingID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNotInQueue
		}
		return 0, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return entry.Position, nil
}

func (s *QueueService) publishPromotion(listingID, userID, bookingID string) {
	event := &models.QueueEvent{
		Type:      "queue.promoted",
		ListingID: listingID,
		UserID:    userID,
		BookingID: bookingID,
		Timestamp: time.Now(),
	}

	if err := s.producer.PublishQueueEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish queue.promoted for listing %s: %v", listingID, err))
	}
}

func (s *QueueService) notifyPromotion(userID, listingTitle string) {
	if s.notifier == nil {
		return
	}
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		s.log.Warn("NOTIFY", fmt.Sprintf("No profile for promoted user %s, skipping email", userID))
		return
	}
	s.notifier.SendPromotionEmail(profile.Email, listingTitle)
}
