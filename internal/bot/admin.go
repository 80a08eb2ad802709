package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/internal/flow"
	"calorie-bot/internal/metrics"
)

const accessDeniedText = "⛔ Доступ запрещён."

// Admin panel callback identifiers.
const (
	cbAdminUsers     = "adm_users"
	cbAdminPremiums  = "adm_premiums"
	cbAdminIncome    = "adm_income"
	cbAdminGrant     = "adm_grant"
	cbAdminRevoke    = "adm_revoke"
	cbAdminPrice     = "adm_price"
	cbAdminBroadcast = "adm_broadcast"
	cbAdminGreeting  = "adm_greeting"
)

func (b *Bot) handleAdminPanel(chatID, userID int64) {
	if !b.ent.IsAdmin(userID) {
		b.sendWithMenu(chatID, userID, accessDeniedText)
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Пользователи", cbAdminUsers),
			tgbotapi.NewInlineKeyboardButtonData("💎 Активные премиумы", cbAdminPremiums),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Выдать премиум (ID)", cbAdminGrant),
			tgbotapi.NewInlineKeyboardButtonData("➖ Снять премиум (ID)", cbAdminRevoke),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Доход (лог)", cbAdminIncome),
			tgbotapi.NewInlineKeyboardButtonData("💵 Изм. цену (звёзды)", cbAdminPrice),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Рассылка", cbAdminBroadcast),
			tgbotapi.NewInlineKeyboardButtonData("👋 Приветствие", cbAdminGreeting),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "🛠 Админ-панель")
	msg.ReplyMarkup = kb
	b.send(msg)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge the callback so the button stops spinning.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warnw("Failed to answer callback query", "error", err)
	}

	switch {
	case query.Data == cbBuyPremiumStars:
		b.sendStarsInvoice(query.Message.Chat.ID, query.From.ID)
	case strings.HasPrefix(query.Data, "adm_"):
		b.handleAdminCallback(ctx, query)
	}
}

func (b *Bot) handleAdminCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	userID := query.From.ID

	if !b.ent.IsAdmin(userID) {
		b.sendText(chatID, accessDeniedText)
		return
	}

	switch query.Data {
	case cbAdminUsers:
		count, err := b.store.CountAccounts(ctx)
		if err != nil {
			b.sendText(chatID, "⚠️ Не получилось прочитать данные. Попробуй ещё раз.")
			return
		}
		b.sendHTML(chatID, fmt.Sprintf("👥 Всего пользователей: <b>%d</b>", count))

	case cbAdminPremiums:
		count, err := b.store.CountActivePremium(ctx)
		if err != nil {
			b.sendText(chatID, "⚠️ Не получилось прочитать данные. Попробуй ещё раз.")
			return
		}
		b.sendHTML(chatID, fmt.Sprintf("💎 Активных премиумов: <b>%d</b>", count))

	case cbAdminIncome:
		total, count, err := b.store.PaymentStats(ctx)
		if err != nil {
			b.sendText(chatID, "⚠️ Не получилось прочитать данные. Попробуй ещё раз.")
			return
		}
		b.sendHTML(chatID, fmt.Sprintf("💰 Сумма по логу платежей: <b>%d</b> (%d оплат)", total, count))

	case cbAdminGrant:
		b.flows.Begin(userID, flow.StepAdminGrant)
		b.sendText(chatID, "Отправь: <user_id> [дни]. Без дней выдам стандартный срок.")

	case cbAdminRevoke:
		b.flows.Begin(userID, flow.StepAdminRevoke)
		b.sendText(chatID, "Отправь: <user_id> для снятия премиума.")

	case cbAdminPrice:
		b.flows.Begin(userID, flow.StepAdminPrice)
		b.sendText(chatID, fmt.Sprintf("Текущая цена: %d ⭐\nОтправь новое число (например 150):", b.price.Stars()))

	case cbAdminBroadcast:
		b.flows.Begin(userID, flow.StepAdminBroadcast)
		b.sendText(chatID, "Отправь текст рассылки. Он уйдёт всем известным пользователям.")

	case cbAdminGreeting:
		b.flows.Begin(userID, flow.StepAdminGreeting)
		b.sendText(chatID, "Отправь новый текст приветствия для /start.")
	}
}

func (b *Bot) handleAdminStep(ctx context.Context, message *tgbotapi.Message, step flow.Step) {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	if !b.ent.IsAdmin(userID) {
		b.flows.Reset(userID)
		b.sendWithMenu(chatID, userID, accessDeniedText)
		return
	}

	switch step {
	case flow.StepAdminGrant:
		targetID, days, err := parseGrantArgs(text, b.price.Days())
		if err != nil {
			b.sendText(chatID, "⚠️ Формат: <user_id> [дни]. Например: 123456789 30")
			return
		}
		if _, err := b.ent.Grant(ctx, targetID, days); err != nil {
			b.log.Errorw("Admin grant failed", "target_id", targetID, "error", err)
			b.sendText(chatID, "⚠️ Не получилось сохранить. Попробуй ещё раз.")
			return
		}
		b.flows.Reset(userID)
		b.sendHTML(chatID, fmt.Sprintf("✅ Выдан премиум пользователю <code>%d</code> на %d дн.", targetID, days))
		b.notifyUser(targetID, fmt.Sprintf("✅ Вам выдан премиум на %d дней администратором.", days))

	case flow.StepAdminRevoke:
		targetID, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			b.sendText(chatID, "⚠️ Отправь числовой user_id.")
			return
		}
		if _, ok, _ := b.store.Account(ctx, targetID); !ok {
			b.flows.Reset(userID)
			b.sendWithMenu(chatID, userID, "Пользователь не найден.")
			return
		}
		if err := b.ent.Revoke(ctx, targetID); err != nil {
			b.log.Errorw("Admin revoke failed", "target_id", targetID, "error", err)
			b.sendText(chatID, "⚠️ Не получилось сохранить. Попробуй ещё раз.")
			return
		}
		b.flows.Reset(userID)
		b.sendHTML(chatID, fmt.Sprintf("✅ Снят премиум у <code>%d</code>.", targetID))

	case flow.StepAdminPrice:
		newPrice, err := strconv.Atoi(text)
		if err != nil || newPrice <= 0 {
			b.sendText(chatID, "⚠️ Отправь положительное число звёзд.")
			return
		}
		b.price.SetStars(newPrice)
		b.flows.Reset(userID)
		b.sendWithMenu(chatID, userID, fmt.Sprintf("✅ Новая цена установлена: %d ⭐", newPrice))

	case flow.StepAdminBroadcast:
		b.flows.Reset(userID)
		sent, failed := b.broadcast(ctx, text)
		b.sendWithMenu(chatID, userID, fmt.Sprintf("📣 Отправлено: %d, ошибок: %d.", sent, failed))

	case flow.StepAdminGreeting:
		if err := b.store.SetGreeting(ctx, text); err != nil {
			b.log.Errorw("Failed to save greeting", "error", err)
			b.sendText(chatID, "⚠️ Не получилось сохранить. Попробуй ещё раз.")
			return
		}
		b.flows.Reset(userID)
		b.sendWithMenu(chatID, userID, "✅ Приветствие обновлено.")
	}
}

// broadcast sends text to every known account id, best-effort: individual
// failures are counted, never fatal to the batch.
func (b *Bot) broadcast(ctx context.Context, text string) (sent, failed int) {
	ids, err := b.store.UserIDs(ctx)
	if err != nil {
		b.log.Errorw("Failed to list broadcast recipients", "error", err)
		return 0, 0
	}
	for _, id := range ids {
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err != nil {
			metrics.BroadcastFailuresTotal.Inc()
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// parseGrantArgs parses "<user_id> [days]", defaulting to the standard
// subscription length.
func parseGrantArgs(text string, defaultDays int) (int64, int, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 || len(parts) > 2 {
		return 0, 0, fmt.Errorf("expected <user_id> [days], got %q", text)
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid user id %q", parts[0])
	}
	days := defaultDays
	if len(parts) == 2 {
		days, err = strconv.Atoi(parts[1])
		if err != nil || days <= 0 {
			return 0, 0, fmt.Errorf("invalid day count %q", parts[1])
		}
	}
	return userID, days, nil
}
