package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() Limits {
	return Limits{
		Window:      time.Minute,
		ReadMax:     5,
		MutationMax: 2,
		ChartMax:    1,
		IngestMax:   10,
	}
}

func TestLimitsMax(t *testing.T) {
	limits := testLimits()

	assert.Equal(t, 5, limits.Max(ClassRead))
	assert.Equal(t, 2, limits.Max(ClassMutation))
	assert.Equal(t, 1, limits.Max(ClassChart))
	assert.Equal(t, 10, limits.Max(ClassIngest))
}

func TestMemoryLimiterExhaustsWindow(t *testing.T) {
	l := NewMemoryLimiter(testLimits())
	defer l.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "caller-1", ClassRead)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within limit", i+1)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, 5-(i+1), res.Remaining)
	}

	res, err := l.Allow(ctx, "caller-1", ClassRead)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.ResetTime.After(time.Now()))
}

func TestMemoryLimiterIsolatesKeysAndClasses(t *testing.T) {
	l := NewMemoryLimiter(testLimits())
	defer l.Close()

	ctx := context.Background()

	// Exhaust the chart budget for one caller.
	res, err := l.Allow(ctx, "caller-1", ClassChart)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "caller-1", ClassChart)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Another caller is untouched.
	res, err = l.Allow(ctx, "caller-2", ClassChart)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Another class for the same caller is untouched.
	res, err = l.Allow(ctx, "caller-1", ClassRead)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	limits := testLimits()
	limits.Window = 30 * time.Millisecond
	limits.MutationMax = 1

	l := NewMemoryLimiter(limits)
	defer l.Close()

	ctx := context.Background()

	res, err := l.Allow(ctx, "caller-1", ClassMutation)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "caller-1", ClassMutation)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(40 * time.Millisecond)

	res, err = l.Allow(ctx, "caller-1", ClassMutation)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "window should reset after expiry")
}
