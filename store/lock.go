package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoExpiry is returned when a lock is requested without a TTL. A lock can
// never be held forever; the TTL bounds how long a crashed holder blocks others.
var ErrNoExpiry = errors.New("lock TTL must be positive")

// releaseScript deletes the lock key only if the caller still owns it. The
// check and the delete run as one server-side operation, so a delayed release
// cannot destroy a lock that has already expired and been re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// LockManager implements a named, TTL-bounded mutual-exclusion token in the
// shared store. Acquisition is non-blocking: losing the race is an expected
// result, not an error, and the caller's own periodic schedule is the retry.
type LockManager struct {
	rdb *redis.Client
}

func NewLockManager(rdb *redis.Client) *LockManager {
	return &LockManager{rdb: rdb}
}

// Acquire attempts to create the lock key only if absent, with the given
// expiry. It returns the random owner token and ok=true on success, or
// ok=false immediately if another holder owns the lock.
func (m *LockManager) Acquire(ctx context.Context, resource string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		return "", false, ErrNoExpiry
	}

	token := uuid.NewString()
	ok, err := m.rdb.SetNX(ctx, lockKey(resource), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the lock if the token still matches the stored owner.
// A mismatch (lock expired and re-acquired by someone else) is a no-op.
func (m *LockManager) Release(ctx context.Context, resource, token string) error {
	return releaseScript.Run(ctx, m.rdb, []string{lockKey(resource)}, token).Err()
}
