package entitlement

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/store"
	"calorie-bot/pkg/logger"
)

const adminID int64 = 99

func newTestService(t *testing.T) *Service {
	t.Helper()
	l := logger.New()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "users.json"), 24*time.Hour, l)
	return New(st, []int64{adminID}, l)
}

func TestAdminsAlwaysEntitled(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	assert.True(t, s.IsAdmin(adminID))
	assert.True(t, s.HasPremium(ctx, adminID))
	assert.True(t, s.TrialActive(ctx, adminID))
	assert.True(t, s.Entitled(ctx, adminID))

	assert.False(t, s.IsAdmin(7))
	assert.False(t, s.HasPremium(ctx, 7))
	assert.False(t, s.TrialActive(ctx, 7))
}

func TestGrantThenEntitled(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	account, err := s.Grant(ctx, 7, 30)
	require.NoError(t, err)
	assert.True(t, account.Premium)
	assert.True(t, s.HasPremium(ctx, 7))
}

func TestRevokeNotifiesBestEffort(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Grant(ctx, 7, 365)
	require.NoError(t, err)

	var notifiedID int64
	var notifiedText string
	s.SetNotifier(func(userID int64, text string) {
		notifiedID = userID
		notifiedText = text
	})

	require.NoError(t, s.Revoke(ctx, 7))
	assert.False(t, s.HasPremium(ctx, 7))
	assert.Equal(t, int64(7), notifiedID)
	assert.NotEmpty(t, notifiedText)
}

func TestRevokeWithoutNotifierDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Grant(ctx, 7, 30)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, 7))
}

func TestTrialStartAndExpiryThroughService(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	require.NoError(t, s.StartTrialIfNeeded(ctx, 7))
	assert.True(t, s.TrialActive(ctx, 7))
	assert.True(t, s.Entitled(ctx, 7))
}
