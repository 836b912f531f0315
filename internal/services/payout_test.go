package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booking-engine/internal/kafka"
	"booking-engine/internal/logger"
	"booking-engine/internal/models"
	"booking-engine/internal/storage"
	"booking-engine/internal/utils"
)

type MockPayoutProvider struct {
	mock.Mock
}

func (m *MockPayoutProvider) CreatePayout(ctx context.Context, destination string, amount float64, payoutType models.PayoutType, metadata map[string]string) (string, error) {
	args := m.Called(ctx, destination, amount, payoutType, metadata)
	return args.String(0), args.Error(1)
}

type stubClaimer struct {
	claimed bool
}

func (c *stubClaimer) ClaimFreeInstantPayout(creatorID, month string) (bool, error) {
	return c.claimed, nil
}

func (c *stubClaimer) ReleaseFreeInstantPayout(creatorID, month string) error {
	return nil
}

// setnxClaimer mimics the Redis SetNX/Del pair: a claim succeeds only once
// per key until released.
type setnxClaimer struct {
	claims map[string]bool
}

func newSetnxClaimer() *setnxClaimer {
	return &setnxClaimer{claims: make(map[string]bool)}
}

func (c *setnxClaimer) ClaimFreeInstantPayout(creatorID, month string) (bool, error) {
	key := creatorID + ":" + month
	if c.claims[key] {
		return false, nil
	}
	c.claims[key] = true
	return true, nil
}

func (c *setnxClaimer) ReleaseFreeInstantPayout(creatorID, month string) error {
	delete(c.claims, creatorID+":"+month)
	return nil
}

func newTestPayoutService(t *testing.T, claimer FreeClaimer) (*PayoutService, *storage.InMemoryStore, *MockPayoutProvider) {
	t.Helper()

	log := logger.NewLogger()
	store := storage.NewInMemoryStore()
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)

	provider := new(MockPayoutProvider)
	return NewPayoutService(store, provider, claimer, producer, nil, log), store, provider
}

func seedCreator(t *testing.T, store *storage.InMemoryStore, creatorID, account string, tier models.Tier) {
	t.Helper()

	require.NoError(t, store.SaveProfile(&models.Profile{
		UserID:        creatorID,
		Email:         creatorID + "@example.com",
		Tier:          tier,
		PayoutAccount: account,
		CreatedAt:     time.Now(),
	}))
}

func seedCompletedBooking(t *testing.T, store *storage.InMemoryStore, listingID, creatorID, customerID string, price float64) {
	t.Helper()

	if _, err := store.GetListing(listingID); errors.Is(err, storage.ErrNotFound) {
		require.NoError(t, store.SaveListing(&models.Listing{
			ListingID: listingID,
			CreatorID: creatorID,
			Price:     price,
			Capacity:  10,
			Active:    true,
			CreatedAt: time.Now(),
		}))
	}

	now := time.Now()
	require.NoError(t, store.SaveBooking(&models.Booking{
		BookingID:   utils.GenerateBookingID(),
		ListingID:   listingID,
		CreatorID:   creatorID,
		CustomerID:  customerID,
		Status:      models.BookingCompleted,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
}

func TestWeeklyPayoutBatchEmpty(t *testing.T) {
	svc, _, provider := newTestPayoutService(t, nil)

	summary, err := svc.WeeklyPayoutBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Errors)
	provider.AssertNotCalled(t, "CreatePayout")
}

func TestWeeklyPayoutBatch(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)

	seedCreator(t, store, "creator-1", "acct_1", models.TierSilver)
	seedCreator(t, store, "creator-2", "acct_2", models.TierGold)
	seedCompletedBooking(t, store, "listing-1", "creator-1", "cust-1", 100)
	seedCompletedBooking(t, store, "listing-1", "creator-1", "cust-2", 100)
	seedCompletedBooking(t, store, "listing-2", "creator-2", "cust-3", 50)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutBatch, mock.Anything).Return("tr_batch_1", nil)
	provider.On("CreatePayout", mock.Anything, "acct_2", mock.AnythingOfType("float64"), models.PayoutBatch, mock.Anything).Return("tr_batch_2", nil)

	summary, err := svc.WeeklyPayoutBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Processed)
	assert.Empty(t, summary.Errors)

	// Silver creator: two completed 100.00 bookings, 20% commission.
	payout, err := store.GetPayoutByProviderID("tr_batch_1")
	require.NoError(t, err)
	assert.InDelta(t, 200.00, payout.Gross, 1e-9)
	assert.InDelta(t, 40.00, payout.Commission, 1e-9)
	assert.InDelta(t, 160.00, payout.Net, 1e-9)
	assert.Equal(t, models.PayoutBatch, payout.PayoutType)
	assert.Equal(t, models.PayoutPending, payout.Status)

	// Gold creator: one 50.00 booking, 10% commission.
	payout, err = store.GetPayoutByProviderID("tr_batch_2")
	require.NoError(t, err)
	assert.InDelta(t, 50.00, payout.Gross, 1e-9)
	assert.InDelta(t, 5.00, payout.Commission, 1e-9)
	assert.InDelta(t, 45.00, payout.Net, 1e-9)

	provider.AssertExpectations(t)
}

// One creator failing must not stop the rest of the batch.
func TestWeeklyPayoutBatchPartialFailure(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)

	seedCreator(t, store, "creator-1", "acct_1", models.TierSilver)
	seedCreator(t, store, "creator-2", "", models.TierSilver) // no connected account
	seedCreator(t, store, "creator-3", "acct_3", models.TierGold)
	seedCompletedBooking(t, store, "listing-1", "creator-1", "cust-1", 100)
	seedCompletedBooking(t, store, "listing-2", "creator-2", "cust-2", 100)
	seedCompletedBooking(t, store, "listing-3", "creator-3", "cust-3", 100)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutBatch, mock.Anything).Return("tr_1", nil)
	provider.On("CreatePayout", mock.Anything, "acct_3", mock.AnythingOfType("float64"), models.PayoutBatch, mock.Anything).Return("tr_3", nil)

	summary, err := svc.WeeklyPayoutBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Processed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "creator-2")
	assert.Contains(t, summary.Errors[0], ErrNoPayoutAccount.Error())

	provider.AssertExpectations(t)
}

func TestWeeklyPayoutBatchProviderFailure(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)

	seedCreator(t, store, "creator-1", "acct_1", models.TierSilver)
	seedCompletedBooking(t, store, "listing-1", "creator-1", "cust-1", 100)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutBatch, mock.Anything).
		Return("", errors.New("transfer declined"))

	summary, err := svc.WeeklyPayoutBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "transfer declined")
}

func TestCreateInstantPayoutFirstOfMonthIsFree(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)
	seedCreator(t, store, "creator-1", "acct_1", models.TierGold)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).Return("tr_instant_1", nil)

	result := svc.CreateInstantPayout(context.Background(), "creator-1", 100)
	require.True(t, result.Success, "unexpected failure: %s", result.Error)
	require.NotNil(t, result.Payout)

	// No fee, then 10% gold commission on the full amount.
	assert.InDelta(t, 0.00, result.Payout.Fee, 1e-9)
	assert.InDelta(t, 100.00, result.Payout.Gross, 1e-9)
	assert.InDelta(t, 10.00, result.Payout.Commission, 1e-9)
	assert.InDelta(t, 90.00, result.Payout.Net, 1e-9)
	assert.Equal(t, models.PayoutInstant, result.Payout.PayoutType)
}

func TestCreateInstantPayoutSecondOfMonthPaysFee(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)
	seedCreator(t, store, "creator-1", "acct_1", models.TierSilver)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).Return("tr_1", nil).Once()
	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).Return("tr_2", nil).Once()

	first := svc.CreateInstantPayout(context.Background(), "creator-1", 100)
	require.True(t, first.Success)
	assert.InDelta(t, 0.00, first.Payout.Fee, 1e-9)

	second := svc.CreateInstantPayout(context.Background(), "creator-1", 100)
	require.True(t, second.Success)

	// 1% fee comes off before the 20% silver commission: 100 - 1 = 99,
	// commission 19.80, net 79.20.
	assert.InDelta(t, 1.00, second.Payout.Fee, 1e-9)
	assert.InDelta(t, 99.00, second.Payout.Gross, 1e-9)
	assert.InDelta(t, 19.80, second.Payout.Commission, 1e-9)
	assert.InDelta(t, 79.20, second.Payout.Net, 1e-9)
}

// When the free slot was already claimed elsewhere, the fee applies even
// with no recorded instant payout this month.
func TestCreateInstantPayoutFreeSlotAlreadyClaimed(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, &stubClaimer{claimed: false})
	seedCreator(t, store, "creator-1", "acct_1", models.TierSilver)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).Return("tr_1", nil)

	result := svc.CreateInstantPayout(context.Background(), "creator-1", 200)
	require.True(t, result.Success)
	assert.InDelta(t, 2.00, result.Payout.Fee, 1e-9)
	assert.InDelta(t, 198.00, result.Payout.Gross, 1e-9)
}

func TestCreateInstantPayoutValidation(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)
	seedCreator(t, store, "no-account", "", models.TierSilver)

	result := svc.CreateInstantPayout(context.Background(), "creator-1", 0)
	assert.False(t, result.Success)
	assert.Equal(t, ErrInvalidAmount.Error(), result.Error)

	result = svc.CreateInstantPayout(context.Background(), "ghost", 100)
	assert.False(t, result.Success)
	assert.Equal(t, ErrCreatorNotFound.Error(), result.Error)

	result = svc.CreateInstantPayout(context.Background(), "no-account", 100)
	assert.False(t, result.Success)
	assert.Equal(t, ErrNoPayoutAccount.Error(), result.Error)

	provider.AssertNotCalled(t, "CreatePayout")
}

// A provider outage must hand the monthly free slot back: the retry after
// the failure is still fee-free.
func TestCreateInstantPayoutFreeSlotSurvivesProviderFailure(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, newSetnxClaimer())
	seedCreator(t, store, "creator-1", "acct_1", models.TierSilver)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).
		Return("", errors.New("connection reset")).Once()
	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).
		Return("tr_retry", nil).Once()

	first := svc.CreateInstantPayout(context.Background(), "creator-1", 100)
	require.False(t, first.Success)
	assert.Contains(t, first.Error, "connection reset")

	second := svc.CreateInstantPayout(context.Background(), "creator-1", 100)
	require.True(t, second.Success, "unexpected failure: %s", second.Error)
	assert.InDelta(t, 0.00, second.Payout.Fee, 1e-9)
	assert.InDelta(t, 100.00, second.Payout.Gross, 1e-9)

	provider.AssertExpectations(t)
}

// Provider failures surface in the result and leave no payout record behind.
func TestCreateInstantPayoutProviderFailure(t *testing.T) {
	svc, store, provider := newTestPayoutService(t, nil)
	seedCreator(t, store, "creator-1", "acct_1", models.TierGold)

	provider.On("CreatePayout", mock.Anything, "acct_1", mock.AnythingOfType("float64"), models.PayoutInstant, mock.Anything).
		Return("", errors.New("destination account frozen"))

	result := svc.CreateInstantPayout(context.Background(), "creator-1", 100)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "destination account frozen")
	assert.Nil(t, result.Payout)

	monthStart := time.Now().AddDate(0, 0, -time.Now().Day()+1)
	count, err := store.CountInstantPayoutsSince("creator-1", monthStart)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
