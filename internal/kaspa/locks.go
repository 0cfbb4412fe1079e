package kaspa

import "sync"

// lockTTLMS is how long an advisory lock is honored before it expires
// on its own, guarding against a crashed holder that never unlocked.
const lockTTLMS = 60_000

// lockTable is a process-wide advisory reservation table keyed by
// "{tx_id}:{index}". It guards against two concurrent payments or
// consolidations racing to spend the same outpoint; it carries no
// on-chain weight.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]UTXOLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]UTXOLock)}
}

// TryLock acquires the lock for key if it is free or its previous
// holder's lock has expired. It reports whether the lock was acquired.
func (t *lockTable) TryLock(outpointKey string, reason LockReason) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := nowMS()
	if existing, ok := t.locks[outpointKey]; ok && now <= existing.ExpiresAtMS {
		return false
	}

	t.locks[outpointKey] = UTXOLock{
		OutpointKey: outpointKey,
		LockedAtMS:  now,
		ExpiresAtMS: now + lockTTLMS,
		Reason:      reason,
	}
	return true
}

// TryLockAll attempts to acquire every key in keys, rolling back any
// partial acquisitions if one fails. It reports whether all keys were
// locked.
func (t *lockTable) TryLockAll(keys []string, reason LockReason) bool {
	acquired := make([]string, 0, len(keys))
	for _, k := range keys {
		if !t.TryLock(k, reason) {
			for _, a := range acquired {
				t.Unlock(a)
			}
			return false
		}
		acquired = append(acquired, k)
	}
	return true
}

// Unlock releases key. It is idempotent: unlocking a key that is not
// held, or is already expired, is a no-op.
func (t *lockTable) Unlock(outpointKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.locks, outpointKey)
}

// UnlockAll releases every key in keys.
func (t *lockTable) UnlockAll(keys []string) {
	for _, k := range keys {
		t.Unlock(k)
	}
}

// IsLocked reports whether key is currently held by a non-expired
// lock. An expired entry is removed as a side effect of the read.
func (t *lockTable) IsLocked(outpointKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.locks[outpointKey]
	if !ok {
		return false
	}
	if nowMS() > existing.ExpiresAtMS {
		delete(t.locks, outpointKey)
		return false
	}
	return true
}

// Size returns the number of locks currently tracked, expired or not.
func (t *lockTable) Size() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint32(len(t.locks))
}

// Cleanup scans every lock, deletes the expired ones, and returns how
// many were removed.
func (t *lockTable) Cleanup() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := nowMS()
	var removed uint32
	for k, lock := range t.locks {
		if now > lock.ExpiresAtMS {
			delete(t.locks, k)
			removed++
		}
	}
	return removed
}
