package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/internal/metrics"
	"calorie-bot/internal/models"
)

const cbBuyPremiumStars = "buy_premium_stars"

// starsPayloadPrefix tags invoices whose completion extends premium. A
// completed payment with any other payload is logged but grants nothing.
const starsPayloadPrefix = "premium_stars:"

// sendPurchaseOffer presents the inline purchase affordance: the Stars
// invoice button, plus a card checkout link when Stripe is configured.
func (b *Bot) sendPurchaseOffer(chatID, userID int64) {
	price := b.price.Stars()
	days := b.price.Days()

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Оплатить %d ⭐", price), cbBuyPremiumStars),
		),
	}
	if b.stripe != nil && b.stripe.Enabled() {
		successURL := fmt.Sprintf("https://t.me/%s?start=payment_success", b.api.Self.UserName)
		cancelURL := fmt.Sprintf("https://t.me/%s?start=payment_cancel", b.api.Self.UserName)
		if _, checkoutURL, err := b.stripe.CreateCheckoutSession(userID, successURL, cancelURL); err == nil {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("💳 Оплатить картой", checkoutURL),
			))
		} else {
			b.log.Warnw("Failed to create Stripe session", "user_id", userID, "error", err)
		}
	}

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("Премиум на %d дней открывает все функции.\nЦена: %d ⭐", days, price))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(msg)
}

func (b *Bot) sendStarsInvoice(chatID, userID int64) {
	price := b.price.Stars()
	days := b.price.Days()

	invoice := tgbotapi.NewInvoice(
		chatID,
		"Премиум-доступ",
		fmt.Sprintf("Доступ ко всем функциям на %d дней.", days),
		fmt.Sprintf("%s%d", starsPayloadPrefix, userID),
		"", // Stars invoices need no provider token
		"premium",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: fmt.Sprintf("Премиум на %d дней", days), Amount: price}},
	)
	b.send(invoice)
}

// handlePreCheckout always approves: validation happened when the invoice
// was issued, and Telegram gives 10 seconds to answer.
func (b *Bot) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: query.ID, OK: true}
	if _, err := b.api.Request(answer); err != nil {
		b.log.Errorw("Failed to answer pre-checkout query", "error", err)
	}
}

// isPremiumPayload reports whether a completed payment should extend the
// premium window.
func isPremiumPayload(payload string) bool {
	return strings.HasPrefix(payload, starsPayloadPrefix)
}

// applyPayment appends the payment record and, when the payload carries the
// premium tag, grants the standard duration. The record is written regardless
// of the match; a failed append must not block the entitlement grant.
func (b *Bot) applyPayment(ctx context.Context, userID int64, amount int, payload string) (models.UserAccount, bool, error) {
	if err := b.store.RecordPayment(ctx, userID, amount, payload); err != nil {
		b.log.Errorw("Failed to record payment", "user_id", userID, "error", err)
	}

	if !isPremiumPayload(payload) {
		b.log.Warnw("Completed payment with unexpected payload",
			"user_id", userID, "payload", payload, "amount", amount)
		metrics.IncPayment("other", 0)
		return models.UserAccount{}, false, nil
	}

	account, err := b.ent.Grant(ctx, userID, b.price.Days())
	if err != nil {
		return models.UserAccount{}, false, err
	}
	metrics.IncPayment("stars", amount)
	return account, true, nil
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, message *tgbotapi.Message) {
	payment := message.SuccessfulPayment
	chatID := message.Chat.ID
	userID := message.From.ID

	account, granted, err := b.applyPayment(ctx, userID, payment.TotalAmount, payment.InvoicePayload)
	if err != nil {
		b.log.Errorw("Failed to grant premium after payment", "user_id", userID, "error", err)
		b.sendWithMenu(chatID, userID,
			"⚠️ Оплата получена, но активировать премиум не удалось. Напишите /start и попробуйте ещё раз.")
		return
	}
	if !granted {
		b.sendWithMenu(chatID, userID, "✅ Оплата получена.")
		return
	}

	expiry := time.Unix(account.PremiumUntil, 0).Format("02.01.2006")
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Оплата получена! Премиум активен до <b>%s</b>.", expiry))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = b.mainMenu(userID)
	b.send(msg)
}
