package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.nowFunc = func() time.Time { return now }

	ok, err := s.Claim(ctx, "xendit:invoice:inv-1:paid", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Claim(ctx, "xendit:invoice:inv-1:paid", time.Hour)
	assert.False(t, ok, "a claimed key cannot be claimed again")

	ok, _ = s.Claim(ctx, "xendit:invoice:inv-1:expired", time.Hour)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, s.Release(ctx, "xendit:invoice:inv-1:paid"))
	ok, _ = s.Claim(ctx, "xendit:invoice:inv-1:paid", time.Hour)
	assert.True(t, ok, "a released key can be claimed again")

	now = now.Add(2 * time.Hour)
	ok, _ = s.Claim(ctx, "xendit:invoice:inv-1:expired", time.Hour)
	assert.True(t, ok, "an expired claim can be claimed again")

	ok, _ = s.Claim(ctx, "xendit:invoice:inv-2:paid", time.Minute)
	require.True(t, ok)
	require.NoError(t, s.Extend(ctx, "xendit:invoice:inv-2:paid", 72*time.Hour))
	now = now.Add(time.Hour)
	ok, _ = s.Claim(ctx, "xendit:invoice:inv-2:paid", time.Minute)
	assert.False(t, ok, "an extended claim outlives its first ttl")

	require.NoError(t, s.Extend(ctx, "xendit:invoice:inv-3:paid", time.Hour))
	ok, _ = s.Claim(ctx, "xendit:invoice:inv-3:paid", time.Minute)
	assert.False(t, ok, "extending an unclaimed key claims it")
}
