package services

import (
	"context"
	"testing"
	"time"

	"coffee-telegram/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{4, 16},
		{5, 30}, // 32 capped
		{10, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CooldownSecondsForFailCount(tt.failCount), "fail count %d", tt.failCount)
	}
}

func TestWaitSeconds(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, waitSeconds(now, now))
	assert.Equal(t, 0, waitSeconds(now, now.Add(-time.Second)))
	assert.Equal(t, 1, waitSeconds(now, now.Add(200*time.Millisecond)))
	assert.Equal(t, 4, waitSeconds(now, now.Add(4*time.Second)))
}

// Needs a database; skipped when db.Pool is nil or with -short.
func TestLoginThrottle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping throttle integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping throttle integration test: no DB pool")
	}
	ctx := context.Background()
	const testUserID int64 = 999999997
	role := ThrottleRoleManager
	defer func() { _ = RecordLoginSuccess(ctx, testUserID, role) }()

	require.NoError(t, RecordLoginSuccess(ctx, testUserID, role))
	wait, err := LoginThrottleWaitSeconds(ctx, testUserID, role)
	require.NoError(t, err)
	assert.Equal(t, 0, wait)

	require.NoError(t, RecordLoginFailed(ctx, testUserID, role))
	wait, err = LoginThrottleWaitSeconds(ctx, testUserID, role)
	require.NoError(t, err)
	assert.Greater(t, wait, 0)
	assert.LessOrEqual(t, wait, ThrottleCooldownCapSeconds)

	for i := 0; i < 8; i++ {
		require.NoError(t, RecordLoginFailed(ctx, testUserID, role))
	}
	wait, _ = LoginThrottleWaitSeconds(ctx, testUserID, role)
	assert.LessOrEqual(t, wait, ThrottleCooldownCapSeconds)

	require.NoError(t, RecordLoginSuccess(ctx, testUserID, role))
	wait, _ = LoginThrottleWaitSeconds(ctx, testUserID, role)
	assert.Equal(t, 0, wait)
}
