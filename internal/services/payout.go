package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
	ErrNoPayoutAccount = errors.New("creator has no payout account connected")
	ErrInvalidAmount   = errors.New("payout amount must be positive")
	ErrAmountTooSmall  = errors.New("payout amount too small after fees")
	ErrCreatorNotFound = errors.New("creator profile not found")
	ErrProviderFailure = errors.New("payout provider request failed")
	ErrEarningsFetch   = errors.New("failed to fetch completed booking earnings")
)

const (
	batchWindow    = 7 * 24 * time.Hour
	instantFeeRate = 0.01
)

// PayoutProvider creates money movements at the external payout service and
// returns the provider's reference id.
type PayoutProvider interface {
	CreatePayout(ctx context.Context, destination string, amount float64, payoutType models.PayoutType, metadata map[string]string) (string, error)
}

// FreeClaimer atomically claims the single free instant payout a creator
// gets per calendar month, and hands the claim back when the payout it was
// taken for does not go through. A nil claimer falls back to the count check
// alone, accepting the concurrent-first-request race.
type FreeClaimer interface {
	ClaimFreeInstantPayout(creatorID, month string) (bool, error)
	ReleaseFreeInstantPayout(creatorID, month string) error
}

// PayoutService orchestrates weekly batch payouts and instant payouts.
type PayoutService struct {
	store    storage.Store
	provider PayoutProvider
	claimer  FreeClaimer
	producer *kafka.Producer
	notifier *notify.Notifier
	log      *logger.Logger
}

func NewPayoutService(store storage.Store, provider PayoutProvider, claimer FreeClaimer, producer *kafka.Producer, notifier *notify.Notifier, log *logger.Logger) *PayoutService {
	return &PayoutService{
		store:    store,
		provider: provider,
		claimer:  claimer,
		producer: producer,
		notifier: notifier,
		log:      log,
	}
}

// WeeklyPayoutBatch aggregates each creator's completed bookings from the
// last seven days and pays out the net amount. One creator failing (no
// connected account, provider error, persistence error) is recorded and
// never stops the rest of the batch; only a failed initial aggregate fails
// the run as a whole.
func (s *PayoutService) WeeklyPayoutBatch(ctx context.Context) (*models.BatchSummary, error) {
	since := time.Now().Add(-batchWindow)
	s.log.LogPayout("BATCH_START", "weekly", fmt.Sprintf("Aggregating completed bookings since %s", since.Format(time.RFC3339)))

	earnings, err := s.store.CreatorEarningsSince(since)
	if err != nil {
		s.log.Error("PAYOUT", fmt.Sprintf("Failed to aggregate earnings: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrEarningsFetch, err)
	}

	// Deterministic processing order for logs and tests.
	creators := make([]string, 0, len(earnings))
	for creatorID := range earnings {
		creators = append(creators, creatorID)
	}
	sort.Strings(creators)

	summary := &models.BatchSummary{
		Total:  len(creators),
		Errors: []string{},
	}

	for _, creatorID := range creators {
		gross := earnings[creatorID]
		if gross <= 0 {
			continue
		}

		if err := s.payCreator(ctx, creatorID, gross); err != nil {
			s.log.Error("PAYOUT", fmt.Sprintf("Batch payout failed for creator %s (gross %.2f): %v", creatorID, gross, err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("creator %s: %v", creatorID, err))
			continue
		}

		summary.Processed++
	}

	s.log.LogPayout("BATCH_DONE", "weekly", fmt.Sprintf("Processed %d/%d creators, %d errors",
		summary.Processed, summary.Total, len(summary.Errors)))
	return summary, nil
}

func (s *PayoutService) payCreator(ctx context.Context, creatorID string, gross float64) error {
	profile, err := s.store.GetProfile(creatorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCreatorNotFound
		}
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.PayoutAccount == "" {
		return ErrNoPayoutAccount
	}

	breakdown := commission.CalculateCreatorPayout(gross, profile.Tier)
	s.log.LogPayout("CALC", creatorID, fmt.Sprintf("Gross %.2f, commission %.2f (%.0f%%), net %.2f",
		breakdown.Gross, breakdown.Commission, breakdown.CommissionRate*100, breakdown.Net))

	providerID, err := s.provider.CreatePayout(ctx, profile.PayoutAccount, breakdown.Net, models.PayoutBatch, map[string]string{
		"creator_id": creatorID,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	now := time.Now()
	payout := &models.Payout{
		PayoutID:   utils.GeneratePayoutID(),
		CreatorID:  creatorID,
		Gross:      breakdown.Gross,
		Commission: breakdown.Commission,
		Net:        breakdown.Net,
		PayoutType: models.PayoutBatch,
		ProviderID: providerID,
		Status:     models.PayoutPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SavePayout(payout); err != nil {
		return fmt.Errorf("failed to record payout: %w", err)
	}

	s.log.LogPayout("CREATED", payout.PayoutID, fmt.Sprintf("Batch payout of %.2f to creator %s", payout.Net, creatorID))
	s.publishPayoutEvent("payout.created", payout)
	if s.notifier != nil {
		s.notifier.SendPayoutEmail(profile.Email, payout.Net, models.PayoutBatch)
	}
	return nil
}

// CreateInstantPayout pays a creator on demand. The first instant payout in
// a calendar month is free; each subsequent one costs 1% of the requested
// amount. The fee comes off before platform commission. Business failures
// come back in the result, never as an error.
func (s *PayoutService) CreateInstantPayout(ctx context.Context, creatorID string, amount float64) *models.InstantPayoutResult {
	s.log.LogPayout("INSTANT_INIT", creatorID, fmt.Sprintf("Instant payout requested for %.2f", amount))

	if amount <= 0 {
		return failure(ErrInvalidAmount.Error())
	}

	profile, err := s.store.GetProfile(creatorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failure(ErrCreatorNotFound.Error())
		}
		s.log.Error("PAYOUT", fmt.Sprintf("Failed to load profile for creator %s: %v", creatorID, err))
		return failure("failed to load creator profile")
	}
	if profile.PayoutAccount == "" {
		return failure(ErrNoPayoutAccount.Error())
	}

	fee, freeClaimed, err := s.instantFee(creatorID, amount)
	if err != nil {
		s.log.Error("PAYOUT", fmt.Sprintf("Failed to determine instant payout fee for creator %s: %v", creatorID, err))
		return failure("failed to determine payout fee")
	}

	payoutAmount := commission.Round2(amount - fee)
	if payoutAmount <= 0 {
		return failure(ErrAmountTooSmall.Error())
	}

	breakdown := commission.CalculateCreatorPayout(payoutAmount, profile.Tier)
	if breakdown.Net <= 0 {
		return failure(ErrAmountTooSmall.Error())
	}

	s.log.LogPayout("INSTANT_CALC", creatorID, fmt.Sprintf("Amount %.2f, fee %.2f, commission %.2f, net %.2f",
		amount, fee, breakdown.Commission, breakdown.Net))

	providerID, err := s.provider.CreatePayout(ctx, profile.PayoutAccount, breakdown.Net, models.PayoutInstant, map[string]string{
		"creator_id": creatorID,
	})
	if err != nil {
		s.log.Error("PAYOUT", fmt.Sprintf("Provider rejected instant payout for creator %s (amount %.2f, type instant): %v",
			creatorID, amount, err))
		if freeClaimed {
			s.releaseFreeClaim(creatorID)
		}
		return failure(fmt.Sprintf("payout provider error: %v", err))
	}

	now := time.Now()
	payout := &models.Payout{
		PayoutID:   utils.GeneratePayoutID(),
		CreatorID:  creatorID,
		Gross:      breakdown.Gross,
		Commission: breakdown.Commission,
		Net:        breakdown.Net,
		Fee:        fee,
		PayoutType: models.PayoutInstant,
		ProviderID: providerID,
		Status:     models.PayoutPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SavePayout(payout); err != nil {
		s.log.Error("PAYOUT", fmt.Sprintf("Failed to record instant payout for creator %s: %v", creatorID, err))
		if freeClaimed {
			s.releaseFreeClaim(creatorID)
		}
		return failure("failed to record payout")
	}

	s.log.LogPayout("INSTANT_SUCCESS", payout.PayoutID, fmt.Sprintf("Instant payout of %.2f to creator %s", payout.Net, creatorID))
	s.publishPayoutEvent("payout.created", payout)
	if s.notifier != nil {
		s.notifier.SendPayoutEmail(profile.Email, payout.Net, models.PayoutInstant)
	}

	return &models.InstantPayoutResult{
		Success: true,
		Payout:  payout,
	}
}

// instantFee implements the monthly fee schedule: the first instant payout
// in the calendar month is free, later ones cost 1%. When a claimer is
// wired, the free slot is claimed atomically so two concurrent first
// requests cannot both get it. The returned flag reports whether this call
// consumed the free claim; the caller must release it if the payout then
// fails.
func (s *PayoutService) instantFee(creatorID string, amount float64) (float64, bool, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	count, err := s.store.CountInstantPayoutsSince(creatorID, monthStart)
	if err != nil {
		return 0, false, fmt.Errorf("failed to count instant payouts: %w", err)
	}
	if count > 0 {
		return commission.Round2(amount * instantFeeRate), false, nil
	}

	if s.claimer != nil {
		claimed, err := s.claimer.ClaimFreeInstantPayout(creatorID, now.Format("2006-01"))
		if err != nil {
			return 0, false, fmt.Errorf("failed to claim free payout slot: %w", err)
		}
		if !claimed {
			return commission.Round2(amount * instantFeeRate), false, nil
		}
		return 0, true, nil
	}

	return 0, false, nil
}

// releaseFreeClaim returns the monthly free slot after a claim was consumed
// for a payout that did not complete.
func (s *PayoutService) releaseFreeClaim(creatorID string) {
	if s.claimer == nil {
		return
	}
	month := time.Now().Format("2006-01")
	if err := s.claimer.ReleaseFreeInstantPayout(creatorID, month); err != nil {
		s.log.Error("PAYOUT", fmt.Sprintf("Failed to release free payout claim for creator %s: %v", creatorID, err))
	}
}

func failure(reason string) *models.InstantPayoutResult {
	return &models.InstantPayoutResult{
		Success: false,
		Error:   reason,
	}
}

func (s *PayoutService) publishPayoutEvent(eventType string, payout *models.Payout) {
	event := &models.PayoutEvent{
		Type:      eventType,
		PayoutID:  payout.PayoutID,
		Status:    payout.Status,
		Payout:    payout,
		Timestamp: time.Now(),
	}

	if err := s.producer.PublishPayoutEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for payout %s: %v", eventType, payout.PayoutID, err))
	}
}
