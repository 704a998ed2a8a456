package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another holder")

var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ProjectLock serializes ingestion per project across server instances.
type ProjectLock struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewProjectLock(client *redisv9.Client, ttl time.Duration) *ProjectLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ProjectLock{
		client: client,
		ttl:    ttl,
	}
}

// Acquire takes the ingest lock for projectID. The returned release func
// only deletes the key while it still holds this caller's token.
func (l *ProjectLock) Acquire(ctx context.Context, projectID string) (func(), error) {
	key := l.lockKey(projectID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire ingest lock failed: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}

func (l *ProjectLock) lockKey(projectID string) string {
	return fmt.Sprintf("ingest:lock:%s", projectID)
}
