package caching

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by GetJSON when no record exists under the
// key. Callers must treat absence as meaningful (revoked or expired),
// never as an internal failure.
var ErrNotFound = errors.New("caching: key not found")

// Store is the replicated key-value store holding session, refresh and
// subscription records.
//
// The backing store is eventually consistent across edge locations: a
// write is not guaranteed to be immediately visible to a subsequent
// read elsewhere, and there is no check-then-act primitive. Callers
// must not build correctness on read-modify-write sequences; see the
// refresh-rotation note in the session service.
type Store interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error

	// IsRateLimited counts a hit against key and reports whether the
	// window's limit is now exceeded.
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis. A bare host:port and the
// redis://host:port form are both accepted.
func NewRedisStore(addr, password string, db int) Store {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	return &redisStore{client: client}
}

func (r *redisStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *redisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisStore) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first hit
	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count > int64(limit), nil
}

func (r *redisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
