package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/go-redis/redis/v8"
)

// RateLimitService counts attempts per key in fixed windows
type RateLimitService interface {
	CheckLimit(ctx context.Context, key string, limit int) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Block(ctx context.Context, key string, duration time.Duration, reason string) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Config holds the Redis connection and limits
type Config struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Requests      int
	Window        time.Duration
	LoginAttempts int
	LoginWindow   time.Duration
	BlockDuration time.Duration
}

type redisRateLimitService struct {
	client *redis.Client
	log    logger.Logger
}

// NewRateLimitService connects to Redis, or returns a no-op service when
// rate limiting is disabled.
func NewRateLimitService(ctx context.Context, config Config, log logger.Logger) (RateLimitService, error) {
	if !config.Enabled {
		log.Info(ctx, "Rate limiting disabled", nil)
		return NoopRateLimitService{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(ctx, "Rate limiting service initialized", map[string]interface{}{
		"redis_addr":     config.RedisAddr,
		"requests":       config.Requests,
		"window":         config.Window.String(),
		"login_attempts": config.LoginAttempts,
	})

	return &redisRateLimitService{client: client, log: log}, nil
}

func (s *redisRateLimitService) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	count, err := s.client.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return false, fmt.Errorf("failed to get attempts: %w", err)
	}
	return count < limit, nil
}

func (s *redisRateLimitService) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return incr.Val(), nil
}

func (s *redisRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	blockKey := "blocked:" + key
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, blockKey, map[string]interface{}{
		"reason":         reason,
		"blocked_at":     time.Now().Unix(),
		"correlation_id": logger.CorrelationID(ctx),
	})
	pipe.Expire(ctx, blockKey, duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to block key: %w", err)
	}

	s.log.Warn(ctx, "Key blocked due to rate limit exceeded", map[string]interface{}{
		"key":      key,
		"duration": duration.String(),
		"reason":   reason,
	})
	return nil
}

func (s *redisRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	exists, err := s.client.Exists(ctx, "blocked:"+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return exists > 0, nil
}

func (s *redisRateLimitService) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key, "blocked:"+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// NoopRateLimitService allows everything
type NoopRateLimitService struct{}

func (NoopRateLimitService) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	return true, nil
}

func (NoopRateLimitService) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, nil
}

func (NoopRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return nil
}

func (NoopRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (NoopRateLimitService) Reset(ctx context.Context, key string) error {
	return nil
}

// LoginThrottle blocks a username or client after repeated failed logins
type LoginThrottle struct {
	service       RateLimitService
	attempts      int
	window        time.Duration
	blockDuration time.Duration
}

func NewLoginThrottle(service RateLimitService, attempts int, window, blockDuration time.Duration) *LoginThrottle {
	if attempts <= 0 {
		attempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if blockDuration <= 0 {
		blockDuration = 30 * time.Minute
	}
	return &LoginThrottle{
		service:       service,
		attempts:      attempts,
		window:        window,
		blockDuration: blockDuration,
	}
}

func loginKey(key string) string {
	return "login:" + key
}

func (t *LoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	blocked, err := t.service.IsBlocked(ctx, loginKey(key))
	if err != nil || blocked {
		return !blocked, err
	}
	return t.service.CheckLimit(ctx, loginKey(key), t.attempts)
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) error {
	count, err := t.service.Increment(ctx, loginKey(key), t.window)
	if err != nil {
		return err
	}
	if count >= int64(t.attempts) {
		return t.service.Block(ctx, loginKey(key), t.blockDuration, "too many failed logins")
	}
	return nil
}

func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	return t.service.Reset(ctx, loginKey(key))
}
