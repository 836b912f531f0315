package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

const (
	queueLockTTL = 10 * time.Second
	// A free-claim marker must outlive the longest calendar month.
	freeClaimTTL = 32 * 24 * time.Hour
)

// AcquireQueueLock takes the per-listing queue mutation lock. Queue position
// shifts and renumbering for one listing must run under this lock.
func (r *Redis) AcquireQueueLock(listingID string) (bool, error) {
	key := "queue_lock:" + listingID
	ok, err := r.Client.SetNX(context.Background(), key, "1", queueLockTTL).Result()
	return ok, err
}

// ReleaseQueueLock frees the per-listing queue mutation lock.
func (r *Redis) ReleaseQueueLock(listingID string) error {
	ctx := context.Background()
	key := "queue_lock:" + listingID
	_, err := r.Client.Del(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released
	}
	return err
}

// ClaimFreeInstantPayout atomically claims the one free instant payout for a
// creator in a calendar month. Returns false if the free slot is already
// taken, closing the race between concurrent first-of-month requests.
func (r *Redis) ClaimFreeInstantPayout(creatorID, month string) (bool, error) {
	key := fmt.Sprintf("instant_free:%s:%s", creatorID, month)
	ok, err := r.Client.SetNX(context.Background(), key, "1", freeClaimTTL).Result()
	return ok, err
}

// ReleaseFreeInstantPayout hands a claimed free slot back. Used when the
// payout the claim was taken for failed downstream, so the creator's next
// attempt this month is still free.
func (r *Redis) ReleaseFreeInstantPayout(creatorID, month string) error {
	key := fmt.Sprintf("instant_free:%s:%s", creatorID, month)
	_, err := r.Client.Del(context.Background(), key).Result()
	return err
}
