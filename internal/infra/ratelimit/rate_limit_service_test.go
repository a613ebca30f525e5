package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRateLimitService keeps counters in maps
type fakeRateLimitService struct {
	counts  map[string]int64
	blocked map[string]bool
}

func newFakeRateLimitService() *fakeRateLimitService {
	return &fakeRateLimitService{counts: map[string]int64{}, blocked: map[string]bool{}}
}

func (f *fakeRateLimitService) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	return f.counts[key] < int64(limit), nil
}

func (f *fakeRateLimitService) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	f.blocked[key] = true
	return nil
}

func (f *fakeRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	return f.blocked[key], nil
}

func (f *fakeRateLimitService) Reset(ctx context.Context, key string) error {
	delete(f.counts, key)
	delete(f.blocked, key)
	return nil
}

func TestLoginThrottle(t *testing.T) {
	ctx := context.Background()
	svc := newFakeRateLimitService()
	throttle := NewLoginThrottle(svc, 3, time.Minute, time.Minute)

	for i := 0; i < 2; i++ {
		allowed, err := throttle.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, allowed)
		require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	}

	require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	allowed, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed, "third failure should block")
	assert.True(t, svc.blocked["login:alice"])

	allowed, err = throttle.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed, "other keys are unaffected")

	require.NoError(t, throttle.Reset(ctx, "alice"))
	allowed, err = throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNewRateLimitService_Disabled(t *testing.T) {
	svc, err := NewRateLimitService(context.Background(), Config{Enabled: false}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, NoopRateLimitService{}, svc)

	allowed, err := svc.CheckLimit(context.Background(), "k", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}
