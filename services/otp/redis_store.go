package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisMaxRetries = 5
	// Keys outlive ExpiresAt by this much so verification can still report
	// an expired code instead of a missing one.
	redisRetention = time.Hour
)

// RedisStore keeps one hash per (purpose, email) plus an id index key.
// Expiry is native, so DeleteExpired has nothing to do.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordKey(email string, purpose Purpose) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, purpose, email)
}

func (s *RedisStore) idKey(id string) string {
	return fmt.Sprintf("%s:id:%s", s.prefix, id)
}

// watch runs fn under optimistic locking, retrying when a watched key changes.
func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func (s *RedisStore) Replace(ctx context.Context, rec *Record) (int64, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	key := s.recordKey(rec.Email, rec.Purpose)
	expireAt := rec.ExpiresAt.Add(redisRetention)

	var replaced int64
	err := s.watch(ctx, func(tx *redis.Tx) error {
		existing, err := tx.HMGet(ctx, key, "id", "used").Result()
		if err != nil {
			return err
		}
		oldID, _ := existing[0].(string)
		replaced = 0
		if oldID != "" && existing[1] != "1" {
			replaced = 1
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if oldID != "" {
				pipe.Del(ctx, s.idKey(oldID))
			}
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, encodeRecord(rec))
			pipe.PExpireAt(ctx, key, expireAt)
			pipe.Set(ctx, s.idKey(rec.ID), key, 0)
			pipe.PExpireAt(ctx, s.idKey(rec.ID), expireAt)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, err
	}
	return replaced, nil
}

func (s *RedisStore) FindActive(ctx context.Context, email string, purpose Purpose) (*Record, error) {
	vals, err := s.client.HGetAll(ctx, s.recordKey(email, purpose)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrRecordNotFound
	}

	rec, err := decodeRecord(vals)
	if err != nil {
		return nil, err
	}
	if rec.Used {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (s *RedisStore) lookup(ctx context.Context, id string) (string, error) {
	key, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRecordNotFound
	}
	return key, err
}

func (s *RedisStore) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	key, err := s.lookup(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	consumed := false
	err = s.watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, "id", "used").Result()
		if err != nil {
			return err
		}
		if vals[0] != id || vals[1] == "1" {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"used", "1",
				"used_at", now.UTC().Format(time.RFC3339Nano),
				"updated_at", now.UTC().Format(time.RFC3339Nano),
			)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = true
		return nil
	}, key)
	if err != nil {
		return false, err
	}
	return consumed, nil
}

func (s *RedisStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	key, err := s.lookup(ctx, id)
	if err != nil {
		return 0, err
	}

	var attempts int64
	err = s.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "id").Result()
		if errors.Is(err, redis.Nil) || current != id {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		var incr *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.HIncrBy(ctx, key, "attempts", 1)
			return nil
		})
		if err != nil {
			return err
		}
		attempts = incr.Val()
		return nil
	}, key)
	return int(attempts), err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key, err := s.lookup(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "id").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if current == id {
				pipe.Del(ctx, key)
			}
			pipe.Del(ctx, s.idKey(id))
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func encodeRecord(rec *Record) map[string]any {
	used := "0"
	if rec.Used {
		used = "1"
	}
	fields := map[string]any{
		"id":         rec.ID,
		"email":      rec.Email,
		"code_hash":  rec.CodeHash,
		"purpose":    string(rec.Purpose),
		"expires_at": rec.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"used":       used,
		"attempts":   rec.Attempts,
		"ip_address": rec.IPAddress,
		"user_agent": rec.UserAgent,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.UsedAt != nil {
		fields["used_at"] = rec.UsedAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func decodeRecord(vals map[string]string) (*Record, error) {
	rec := &Record{
		ID:        vals["id"],
		Email:     vals["email"],
		CodeHash:  vals["code_hash"],
		Purpose:   Purpose(vals["purpose"]),
		Used:      vals["used"] == "1",
		IPAddress: vals["ip_address"],
		UserAgent: vals["user_agent"],
	}

	var err error
	if rec.ExpiresAt, err = time.Parse(time.RFC3339Nano, vals["expires_at"]); err != nil {
		return nil, fmt.Errorf("failed to decode expires_at: %w", err)
	}
	if v := vals["created_at"]; v != "" {
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("failed to decode created_at: %w", err)
		}
	}
	if v := vals["updated_at"]; v != "" {
		if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("failed to decode updated_at: %w", err)
		}
	}
	if v := vals["used_at"]; v != "" {
		usedAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode used_at: %w", err)
		}
		rec.UsedAt = &usedAt
	}
	if v := vals["attempts"]; v != "" {
		if rec.Attempts, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("failed to decode attempts: %w", err)
		}
	}
	return rec, nil
}
