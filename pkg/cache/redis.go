package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis configuration
type Config struct {
	Host        string
	Port        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	MinIdleConn int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConn,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Close gracefully closes the Redis client
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// AttemptLimiter counts attempts per key in a fixed window
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewAttemptLimiter allows limit attempts per key every window
func NewAttemptLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow records an attempt for key and reports whether it is within the limit
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// the window starts at the first attempt; INCR keeps the TTL
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("count attempt: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

// Reset clears the attempts of key, e.g. after a successful login
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *AttemptLimiter) key(key string) string {
	return fmt.Sprintf("%s:attempts:%s", l.prefix, key)
}

// ErrInProgress means another request holds the idempotency key
var ErrInProgress = errors.New("request with this idempotency key is in progress")

const pendingResponse = "\x00pending"

// ResponseStore keeps serialized responses for Idempotency-Key replay
type ResponseStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewResponseStore keeps responses for ttl
func NewResponseStore(client *redis.Client, prefix string, ttl time.Duration) *ResponseStore {
	return &ResponseStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Reserve claims key for the caller. When the key is already taken it returns
// the stored response, or ErrInProgress while the owner has not completed it.
// A caller that claimed the key must Complete or Release it.
func (s *ResponseStore) Reserve(ctx context.Context, key string) ([]byte, bool, error) {
	k := s.key(key)

	claimed, err := s.client.SetNX(ctx, k, pendingResponse, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if claimed {
		return nil, true, nil
	}

	data, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// released between SETNX and GET
		return nil, false, ErrInProgress
	}
	if err != nil {
		return nil, false, fmt.Errorf("get idempotent response: %w", err)
	}
	if string(data) == pendingResponse {
		return nil, false, ErrInProgress
	}
	return data, false, nil
}

// Complete replaces the reservation of key with the final response
func (s *ResponseStore) Complete(ctx context.Context, key string, body []byte) error {
	if err := s.client.SetXX(ctx, s.key(key), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Release drops the reservation of key so the request can be retried
func (s *ResponseStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *ResponseStore) key(key string) string {
	return fmt.Sprintf("%s:idempotency:%s", s.prefix, key)
}
