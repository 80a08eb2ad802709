package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPremiumPayload(t *testing.T) {
	assert.True(t, isPremiumPayload("premium_stars:42"))
	assert.False(t, isPremiumPayload(""))
	assert.False(t, isPremiumPayload("donation:42"))
	assert.False(t, isPremiumPayload("stars_premium:42"))
}

func paymentMessage(userID int64, amount int, payload string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		SuccessfulPayment: &tgbotapi.SuccessfulPayment{
			Currency:       "XTR",
			TotalAmount:    amount,
			InvoicePayload: payload,
		},
	}
}

func TestSuccessfulPaymentGrantsOnPremiumPayload(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleSuccessfulPayment(ctx, paymentMessage(42, 100, "premium_stars:42"))

	ok, err := b.store.HasPremium(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	total, count, err := b.store.PaymentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
	assert.Equal(t, 1, count)
}

func TestSuccessfulPaymentForeignPayloadLoggedNotGranted(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleSuccessfulPayment(ctx, paymentMessage(42, 150, "donation:42"))

	ok, err := b.store.HasPremium(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	// The record is still appended for admin reporting.
	total, count, err := b.store.PaymentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150, total)
	assert.Equal(t, 1, count)
}
