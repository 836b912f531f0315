package services

import "sync"

// QueueLocker serializes queue mutations per listing. The Redis
// implementation backs multi-instance deployments; LocalLocker covers tests
// and single-process runs.
type QueueLocker interface {
	AcquireQueueLock(listingID string) (bool, error)
	ReleaseQueueLock(listingID string) error
}

// LocalLocker is an in-process QueueLocker with try-lock semantics matching
// the Redis SetNX behavior.
type LocalLocker struct {
	mu     sync.Mutex
	locked map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locked: make(map[string]bool),
	}
}

func (l *LocalLocker) AcquireQueueLock(listingID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked[listingID] {
		return false, nil
	}
	l.locked[listingID] = true
	return true, nil
}

func (l *LocalLocker) ReleaseQueueLock(listingID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locked, listingID)
	return nil
}
