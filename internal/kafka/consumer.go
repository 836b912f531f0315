package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"booking-engine/internal/models"
	"booking-engine/internal/storage"
)

// PayoutStatusConsumer listens for asynchronous payout completion
// notifications relayed from the payout provider and applies the status to
// the stored payout record.
type PayoutStatusConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	store    storage.Store
}

func NewPayoutStatusConsumer(brokers []string, groupID string, store storage.Store) (*PayoutStatusConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &PayoutStatusConsumer{
		consumer: consumer,
		topics:   []string{"payout-status"},
		store:    store,
	}, nil
}

func (c *PayoutStatusConsumer) ConsumeStatusUpdates(ctx context.Context, handler func(*models.PayoutEvent) error) error {
	consumerHandler := &PayoutStatusHandler{Handler: handler, Store: c.store}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				log.Printf("Error consuming messages: %v", err)
				return err
			}
		}
	}
}

func (c *PayoutStatusConsumer) Close() error {
	return c.consumer.Close()
}

// PayoutStatusHandler is exported so the claim-processing logic can be
// exercised directly in tests without a broker.
type PayoutStatusHandler struct {
	Handler func(*models.PayoutEvent) error
	Store   storage.Store
}

func (h *PayoutStatusHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *PayoutStatusHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *PayoutStatusHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event models.PayoutEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Printf("Failed to unmarshal payout status message: %v", err)
			continue
		}

		if err := h.apply(&event); err != nil {
			log.Printf("Failed to apply payout status event: %v", err)
			continue
		}

		if h.Handler != nil {
			if err := h.Handler(&event); err != nil {
				log.Printf("Payout status handler error: %v", err)
				continue
			}
		}

		session.MarkMessage(message, "")
	}

	return nil
}

// apply resolves the payout by provider reference and records the new status.
func (h *PayoutStatusHandler) apply(event *models.PayoutEvent) error {
	if event.Status == "" {
		return fmt.Errorf("payout status event missing status")
	}

	payoutID := event.PayoutID
	if payoutID == "" {
		if event.ProviderID == "" {
			return fmt.Errorf("payout status event missing payout and provider ids")
		}
		payout, err := h.Store.GetPayoutByProviderID(event.ProviderID)
		if err != nil {
			return fmt.Errorf("failed to resolve payout for provider id %s: %w", event.ProviderID, err)
		}
		payoutID = payout.PayoutID
	}

	if err := h.Store.UpdatePayoutStatus(payoutID, event.Status); err != nil {
		return fmt.Errorf("failed to update payout %s: %w", payoutID, err)
	}

	return nil
}
