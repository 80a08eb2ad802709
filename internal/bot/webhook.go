package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v72"

	"calorie-bot/internal/metrics"
)

// HandleStripeWebhook processes checkout completions from the optional card
// payment path. The grant runs in the background so the webhook responds
// before Stripe's timeout.
func (b *Bot) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if b.stripe == nil || !b.stripe.Enabled() {
		http.Error(w, "Card payments not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		b.log.Errorw("Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := b.stripe.VerifyWebhookSignature(body, signature)
	if err != nil {
		b.log.Errorw("Failed to verify webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			b.log.Errorw("Failed to parse checkout session", "error", err)
			http.Error(w, "Failed to parse event data", http.StatusBadRequest)
			return
		}
		userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
		if err != nil {
			b.log.Errorw("Invalid client reference ID", "value", session.ClientReferenceID, "error", err)
			http.Error(w, "Invalid client reference ID", http.StatusBadRequest)
			return
		}

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.completeCardPurchase(userID, session.ID, session.AmountTotal)
		}()

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err == nil {
			b.log.Errorw("Card payment failed", "payment_id", intent.ID)
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}

func (b *Bot) completeCardPurchase(userID int64, sessionID string, amount int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Amount is in the card currency's minor units; the payload tag keeps
	// the log entry attributable in admin reporting.
	if err := b.store.RecordPayment(ctx, userID, int(amount), "stripe:"+sessionID); err != nil {
		b.log.Errorw("Failed to record card payment", "user_id", userID, "error", err)
	}

	account, err := b.ent.Grant(ctx, userID, b.price.Days())
	if err != nil {
		b.log.Errorw("Failed to grant premium after card payment", "user_id", userID, "error", err)
		b.notifyUser(userID, "⚠️ Оплата получена, но активировать премиум не удалось. Напишите /start и попробуйте ещё раз.")
		return
	}
	metrics.IncPayment("stripe", 0)

	expiry := time.Unix(account.PremiumUntil, 0).Format("02.01.2006")
	b.notifyUser(userID, fmt.Sprintf("✅ Оплата получена! Премиум активен до %s.", expiry))
}
