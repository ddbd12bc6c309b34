package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowed(rl *KeyedRateLimiter, key string, n int) int {
	passed := 0
	for range n {
		if rl.Allow(key) {
			passed++
		}
	}
	return passed
}

func TestAllow_BurstPerClient(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		calls int
		want  int
	}{
		{"within burst", 3, 3, 3},
		{"past burst", 2, 5, 2},
		{"single token", 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(1, tt.burst)
			defer rl.Stop()

			assert.Equal(t, tt.want, allowed(rl, "203.0.113.7", tt.calls))
		})
	}
}

func TestAllow_ClientsDoNotShareBuckets(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("203.0.113.7"))
	assert.False(t, rl.Allow("203.0.113.7"))
	assert.True(t, rl.Allow("198.51.100.20"))
	assert.Equal(t, 2, rl.Len())
}

func TestWait_PacesOutboundCalls(t *testing.T) {
	rl := New(10, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, "catalog.example.supabase.co"))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "catalog.example.supabase.co"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWait_HonoursCancellation(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()
	rl.Allow("catalog.example.supabase.co")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, rl.Wait(ctx, "catalog.example.supabase.co"))
}

func TestEvictIdle(t *testing.T) {
	rl := NewWithTTL(1, 1, time.Minute)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("stale")
	now = now.Add(30 * time.Second)
	rl.Allow("fresh")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.evictIdle())
	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("stale"), "evicted clients start with a full bucket")
}
