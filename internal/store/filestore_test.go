package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	return NewFileStore(path, 24*time.Hour, logger.New())
}

func TestGrantPremiumStacks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }

	account, err := s.GrantPremium(ctx, 42, 10)
	require.NoError(t, err)
	assert.True(t, account.Premium)
	assert.Equal(t, start.Unix()+10*86400, account.PremiumUntil)

	// A second grant before expiry extends from the existing expiry, not
	// from now.
	s.now = func() time.Time { return start.Add(3 * 24 * time.Hour) }
	account, err = s.GrantPremium(ctx, 42, 5)
	require.NoError(t, err)
	assert.Equal(t, start.Unix()+15*86400, account.PremiumUntil)
}

func TestGrantPremiumAfterExpiryCountsFromNow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	_, err := s.GrantPremium(ctx, 42, 1)
	require.NoError(t, err)

	later := start.Add(10 * 24 * time.Hour)
	s.now = func() time.Time { return later }
	account, err := s.GrantPremium(ctx, 42, 5)
	require.NoError(t, err)
	assert.Equal(t, later.Unix()+5*86400, account.PremiumUntil)
}

func TestHasPremiumLazyExpiryClearsFlag(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	_, err := s.GrantPremium(ctx, 42, 1)
	require.NoError(t, err)

	ok, err := s.HasPremium(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	// Exactly at expiry the entitlement is gone.
	s.now = func() time.Time { return start.Add(24 * time.Hour) }
	ok, err = s.HasPremium(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	// The stale flag was cleared as an observable side effect.
	account, found, err := s.Account(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, account.Premium)
}

func TestRevokePremiumImmediate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GrantPremium(ctx, 42, 365)
	require.NoError(t, err)

	require.NoError(t, s.RevokePremium(ctx, 42))

	ok, err := s.HasPremium(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	account, found, err := s.Account(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, account.Premium)
	assert.Zero(t, account.PremiumUntil)
}

func TestStartTrialIfNeededIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	require.NoError(t, s.StartTrialIfNeeded(ctx, 42))

	first, _, err := s.Account(ctx, 42)
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(5 * time.Hour) }
	require.NoError(t, s.StartTrialIfNeeded(ctx, 42))

	second, _, err := s.Account(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, first.TrialUntil, second.TrialUntil)

	active, err := s.TrialActive(ctx, 42)
	require.NoError(t, err)
	assert.True(t, active)

	s.now = func() time.Time { return start.Add(25 * time.Hour) }
	active, err = s.TrialActive(ctx, 42)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestPaymentLogAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordPayment(ctx, 1, 100, "premium_stars:1"))
	require.NoError(t, s.RecordPayment(ctx, 2, 150, "something else entirely"))

	total, count, err := s.PaymentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, total)
	assert.Equal(t, 2, count)
}

func TestCountsAndUserIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetOrCreateAccount(ctx, 1)
	require.NoError(t, err)
	_, err = s.GetOrCreateAccount(ctx, 2)
	require.NoError(t, err)
	_, err = s.GrantPremium(ctx, 2, 30)
	require.NoError(t, err)

	count, err := s.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	active, err := s.CountActivePremium(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	ids, err := s.UserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestProfileRetained(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	profile := models.Profile{Sex: "Мужчина", Height: 180, Weight: 80, Age: 30, Activity: "Средняя", Goal: "Похудение"}
	require.NoError(t, s.SaveProfile(ctx, 42, profile))

	account, found, err := s.Account(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, account.Profile)
	assert.Equal(t, profile, *account.Profile)
	assert.True(t, account.Profile.Complete())
}

func TestGreetingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	text, err := s.Greeting(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, s.SetGreeting(ctx, "Добро пожаловать!"))

	text, err = s.Greeting(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Добро пожаловать!", text)
}

func TestForwardReadableOnMissingKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"42": {"joined": 100}}`), 0o644))

	s := NewFileStore(path, 24*time.Hour, logger.New())
	account, found, err := s.Account(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(100), account.JoinedAt)
	assert.False(t, account.Premium)
	assert.Nil(t, account.Profile)
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	s := NewFileStore(path, 24*time.Hour, logger.New())
	_, found, err := s.Account(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	count, err := s.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConcurrentGrantAndRevokeStayConsistent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.GrantPremium(ctx, 42, 30)
		}()
		go func() {
			defer wg.Done()
			_ = s.RevokePremium(ctx, 42)
		}()
	}
	wg.Wait()

	// Whichever write landed last, the record is one of the two valid
	// shapes, never a partial mix.
	account, found, err := s.Account(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	if account.Premium {
		assert.Positive(t, account.PremiumUntil)
	} else {
		assert.Zero(t, account.PremiumUntil)
	}
}
