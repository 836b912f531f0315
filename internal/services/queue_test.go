package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-engine/internal/kafka"
	"booking-engine/internal/logger"
	"booking-engine/internal/models"
	"booking-engine/internal/storage"
)

func newTestQueueService(t *testing.T) (*QueueService, *storage.InMemoryStore) {
	t.Helper()

	log := logger.NewLogger()
	store := storage.NewInMemoryStore()
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)

	return NewQueueService(store, NewLocalLocker(), producer, nil, log), store
}

func seedListing(t *testing.T, store *storage.InMemoryStore, listingID, creatorID string, capacity int) {
	t.Helper()

	require.NoError(t, store.SaveListing(&models.Listing{
		ListingID: listingID,
		CreatorID: creatorID,
		Title:     "Test Listing",
		Price:     100,
		Capacity:  capacity,
		EventTier: models.EventTierB,
		Active:    true,
		CreatedAt: time.Now(),
	}))
}

// assertContiguous checks the queue invariant: active positions for a
// listing are exactly 1..n with no duplicates or gaps.
func assertContiguous(t *testing.T, store *storage.InMemoryStore, listingID string) {
	t.Helper()

	entries, err := store.ListQueueEntries(listingID)
	require.NoError(t, err)

	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Position, "position %d of %d is not contiguous", i+1, len(entries))
	}
}

func TestAddToQueueAppendsInOrder(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()

	for i, user := range []string{"user-1", "user-2", "user-3"} {
		result, err := svc.AddToQueue(ctx, "listing-1", user, models.TierSilver)
		require.NoError(t, err)
		assert.Equal(t, i+1, result.QueuePosition)
		assert.Equal(t, "soon", result.EstimatedWait)
	}

	assertContiguous(t, store, "listing-1")
}

func TestAddToQueueEstimatedWait(t *testing.T) {
	svc, _ := newTestQueueService(t)
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	var last *models.QueueResult
	for _, user := range users {
		result, err := svc.AddToQueue(ctx, "listing-1", user, models.TierSilver)
		require.NoError(t, err)
		last = result
	}

	// Position 5 is beyond the "soon" window: two hours per slot.
	assert.Equal(t, 5, last.QueuePosition)
	assert.Equal(t, "10 hours", last.EstimatedWait)
}

func TestAddToQueuePriorityInsertion(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()

	_, err := svc.AddToQueue(ctx, "listing-1", "regular-user", models.TierSilver)
	require.NoError(t, err)

	result, err := svc.AddToQueue(ctx, "listing-1", "gold-user", models.TierGold)
	require.NoError(t, err)
	assert.Equal(t, 1, result.QueuePosition)

	// The earlier entrant shifted down to position 2.
	position, err := svc.GetQueuePosition(ctx, "listing-1", "regular-user")
	require.NoError(t, err)
	assert.Equal(t, 2, position)

	assertContiguous(t, store, "listing-1")
}

// Among successive priority entrants the most recent one takes position 1.
// Stack-like on purpose; see DESIGN.md.
func TestAddToQueuePriorityTieBreak(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()

	_, err := svc.AddToQueue(ctx, "listing-1", "gold-first", models.TierGold)
	require.NoError(t, err)

	result, err := svc.AddToQueue(ctx, "listing-1", "platinum-second", models.TierPlatinum)
	require.NoError(t, err)
	assert.Equal(t, 1, result.QueuePosition)

	position, err := svc.GetQueuePosition(ctx, "listing-1", "gold-first")
	require.NoError(t, err)
	assert.Equal(t, 2, position)

	assertContiguous(t, store, "listing-1")
}

func TestAddToQueueIdempotent(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()

	first, err := svc.AddToQueue(ctx, "listing-1", "user-1", models.TierSilver)
	require.NoError(t, err)

	second, err := svc.AddToQueue(ctx, "listing-1", "user-1", models.TierSilver)
	require.NoError(t, err)

	assert.Equal(t, first.QueuePosition, second.QueuePosition)

	entries, err := store.ListQueueEntries("listing-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "duplicate enqueue must not create a second entry")
}

func TestGetQueuePositionNotInQueue(t *testing.T) {
	svc, _ := newTestQueueService(t)

	_, err := svc.GetQueuePosition(context.Background(), "listing-1", "stranger")
	assert.ErrorIs(t, err, ErrNotInQueue)
}

func TestAutoPromoteFromQueueEmptyIsNoOp(t *testing.T) {
	svc, store := newTestQueueService(t)
	seedListing(t, store, "listing-1", "creator-1", 1)

	// Nothing waiting: promotion must quietly do nothing.
	svc.AutoPromoteFromQueue(context.Background(), "listing-1")

	entries, err := store.ListQueueEntries("listing-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAutoPromoteFromQueue(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()
	seedListing(t, store, "listing-1", "creator-1", 1)

	for _, user := range []string{"user-1", "user-2", "user-3"} {
		_, err := svc.AddToQueue(ctx, "listing-1", user, models.TierSilver)
		require.NoError(t, err)
	}

	svc.AutoPromoteFromQueue(ctx, "listing-1")

	// The head is retired as auto-booked, not deleted.
	_, err := store.GetQueueEntry("listing-1", "user-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The promoted user got a confirmed booking owned by the listing creator.
	promoted := store.FindBooking("listing-1", "user-1")
	require.NotNil(t, promoted, "expected a booking for the promoted user")
	assert.Equal(t, models.BookingConfirmed, promoted.Status)
	assert.Equal(t, "creator-1", promoted.CreatorID)

	// Remainder renumbered back to 1..n in order.
	position, err := svc.GetQueuePosition(ctx, "listing-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	position, err = svc.GetQueuePosition(ctx, "listing-1", "user-3")
	require.NoError(t, err)
	assert.Equal(t, 2, position)

	assertContiguous(t, store, "listing-1")
}

// flakyQueueStore lets a test fail a single storage step to check what the
// queue looks like afterwards.
type flakyQueueStore struct {
	*storage.InMemoryStore
	failSave  bool
	failShift bool
}

func (s *flakyQueueStore) SaveQueueEntry(entry *models.QueueEntry) error {
	if s.failSave {
		return errors.New("save rejected")
	}
	return s.InMemoryStore.SaveQueueEntry(entry)
}

func (s *flakyQueueStore) UpdateQueuePositions(listingID string, positions map[string]int) error {
	if s.failShift {
		return errors.New("shift rejected")
	}
	return s.InMemoryStore.UpdateQueuePositions(listingID, positions)
}

func TestAddToQueueFailedSaveLeavesQueueUntouched(t *testing.T) {
	log := logger.NewLogger()
	flaky := &flakyQueueStore{InMemoryStore: storage.NewInMemoryStore()}
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)
	svc := NewQueueService(flaky, NewLocalLocker(), producer, nil, log)
	ctx := context.Background()

	_, err = svc.AddToQueue(ctx, "listing-1", "user-1", models.TierSilver)
	require.NoError(t, err)
	_, err = svc.AddToQueue(ctx, "listing-1", "user-2", models.TierSilver)
	require.NoError(t, err)

	flaky.failSave = true
	_, err = svc.AddToQueue(ctx, "listing-1", "gold-user", models.TierGold)
	require.Error(t, err)

	// Nothing moved: the entrant is saved before anyone shifts.
	entries, err := flaky.ListQueueEntries("listing-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user-1", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, "user-2", entries[1].UserID)
	assert.Equal(t, 2, entries[1].Position)
}

func TestAddToQueueFailedShiftKeepsHeadAtOne(t *testing.T) {
	log := logger.NewLogger()
	flaky := &flakyQueueStore{InMemoryStore: storage.NewInMemoryStore()}
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)
	svc := NewQueueService(flaky, NewLocalLocker(), producer, nil, log)
	ctx := context.Background()

	_, err = svc.AddToQueue(ctx, "listing-1", "user-1", models.TierSilver)
	require.NoError(t, err)

	flaky.failShift = true
	_, err = svc.AddToQueue(ctx, "listing-1", "gold-user", models.TierGold)
	require.Error(t, err)

	// The shift failed after the head was written: position 1 is still
	// occupied, the queue never starts at 2.
	entries, err := flaky.ListQueueEntries("listing-1")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, 1, entries[0].Position)
}

// A promoted user must be able to rejoin the wait list for the same listing;
// the retired entry does not block a fresh one.
func TestAddToQueueAfterPromotionRejoins(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()
	seedListing(t, store, "listing-1", "creator-1", 1)

	_, err := svc.AddToQueue(ctx, "listing-1", "user-1", models.TierSilver)
	require.NoError(t, err)

	svc.AutoPromoteFromQueue(ctx, "listing-1")
	_, err = store.GetQueueEntry("listing-1", "user-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	result, err := svc.AddToQueue(ctx, "listing-1", "user-1", models.TierSilver)
	require.NoError(t, err)
	assert.Equal(t, 1, result.QueuePosition)
	assertContiguous(t, store, "listing-1")
}

// Promotion prices the booking off the promoted user's membership tier.
func TestAutoPromoteFromQueueAppliesMemberDiscount(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()
	seedListing(t, store, "listing-1", "creator-1", 1)

	require.NoError(t, store.SaveProfile(&models.Profile{
		UserID:    "gold-user",
		Email:     "gold-user@example.com",
		Tier:      models.TierGold,
		CreatedAt: time.Now(),
	}))

	_, err := svc.AddToQueue(ctx, "listing-1", "gold-user", models.TierGold)
	require.NoError(t, err)

	svc.AutoPromoteFromQueue(ctx, "listing-1")

	// Gold on a tier-B listing: 10% off the 100.00 list price.
	promoted := store.FindBooking("listing-1", "gold-user")
	require.NotNil(t, promoted)
	assert.InDelta(t, 90.00, promoted.Price, 1e-9)
}

func TestQueueInvariantAfterMixedOperations(t *testing.T) {
	svc, store := newTestQueueService(t)
	ctx := context.Background()
	seedListing(t, store, "listing-1", "creator-1", 1)

	_, err := svc.AddToQueue(ctx, "listing-1", "a", models.TierSilver)
	require.NoError(t, err)
	_, err = svc.AddToQueue(ctx, "listing-1", "b", models.TierGold)
	require.NoError(t, err)
	_, err = svc.AddToQueue(ctx, "listing-1", "c", models.TierSilver)
	require.NoError(t, err)

	svc.AutoPromoteFromQueue(ctx, "listing-1")

	_, err = svc.AddToQueue(ctx, "listing-1", "d", models.TierPlatinum)
	require.NoError(t, err)

	svc.AutoPromoteFromQueue(ctx, "listing-1")

	assertContiguous(t, store, "listing-1")

	entries, err := store.ListQueueEntries("listing-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
