package cache

import (
	"context"
	"time"
)

// JobLock is a Redis-backed mutual-exclusion lock for batch job runs. It
// keeps two overlapping scheduler invocations from sweeping the same set of
// startups at once; the TTL guards against a crashed run holding the lock
// forever.
type JobLock struct{}

// NewJobLock returns a lock backed by the shared Redis client.
func NewJobLock() *JobLock {
	return &JobLock{}
}

// Acquire takes the lock if it is free. Returns false when another run
// already holds it.
func (l *JobLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, "lock:"+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release frees the lock.
func (l *JobLock) Release(ctx context.Context, key string) error {
	return GetClient().Del(ctx, "lock:"+key).Err()
}
