package lockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// failScript applies the increment-and-maybe-lock transition in one atomic
// step. An existing unexpired lock is returned untouched; an expired lock is
// discarded before counting. The record expires with the lock window so
// stale warning counters do not linger forever.
var failScript = redis.NewScript(`
local key = KEYS[1]
local threshold = tonumber(ARGV[1])
local lock_seconds = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local locked_until = tonumber(redis.call('HGET', key, 'locked_until') or '0')
if locked_until > now then
  local failures = tonumber(redis.call('HGET', key, 'failures') or '0')
  return {failures, locked_until, 0}
end
if locked_until > 0 then
  redis.call('DEL', key)
end

local failures = redis.call('HINCRBY', key, 'failures', 1)
if failures >= threshold then
  locked_until = now + lock_seconds
  redis.call('HSET', key, 'locked_until', locked_until)
  redis.call('EXPIRE', key, lock_seconds)
  return {failures, locked_until, 1}
end
redis.call('EXPIRE', key, lock_seconds)
return {failures, 0, 0}
`)

// RedisStore keeps lockout records in Redis hashes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(principalID string) string {
	return "lockout:" + principalID
}

// Fail runs the atomic failure transition.
func (s *RedisStore) Fail(ctx context.Context, principalID string, policy Policy, now time.Time) (Record, error) {
	res, err := failScript.Run(ctx, s.client, []string{s.key(principalID)},
		policy.Threshold, int64(policy.LockFor.Seconds()), now.Unix()).Result()
	if err != nil {
		return Record{}, fmt.Errorf("lockout: fail script: %w", err)
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Record{}, fmt.Errorf("lockout: unexpected script reply %v", res)
	}
	failures, _ := values[0].(int64)
	lockedUntil, _ := values[1].(int64)
	tripped, _ := values[2].(int64)
	rec := Record{Failures: int(failures), Tripped: tripped == 1}
	if lockedUntil > 0 {
		rec.LockedUntil = time.Unix(lockedUntil, 0)
	}
	return rec, nil
}

// Clear removes the record, resetting the principal to Clear.
func (s *RedisStore) Clear(ctx context.Context, principalID string) error {
	if err := s.client.Del(ctx, s.key(principalID)).Err(); err != nil {
		return fmt.Errorf("lockout: clear: %w", err)
	}
	return nil
}

// Get reads the record, lazily discarding an expired lock.
func (s *RedisStore) Get(ctx context.Context, principalID string, now time.Time) (Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key(principalID)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("lockout: get: %w", err)
	}
	if len(fields) == 0 {
		return Record{}, nil
	}
	rec := Record{}
	if raw, ok := fields["failures"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			rec.Failures = n
		}
	}
	if raw, ok := fields["locked_until"]; ok {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil && ts > 0 {
			rec.LockedUntil = time.Unix(ts, 0)
		}
	}
	if !rec.LockedUntil.IsZero() && !rec.LockedUntil.After(now) {
		// Lock expired; drop the record so the next failure starts clean.
		_ = s.client.Del(ctx, s.key(principalID)).Err()
		return Record{}, nil
	}
	return rec, nil
}

var _ Store = (*RedisStore)(nil)
