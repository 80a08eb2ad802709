package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/internal/flow"
	"calorie-bot/internal/models"
)

// handleWeekMenu starts the questionnaire, or skips it when the profile is
// already on the account: answers given before a purchase are retained so a
// later purchase generates the plan without re-asking.
func (b *Bot) handleWeekMenu(ctx context.Context, chatID, userID int64) {
	account, ok, err := b.store.Account(ctx, userID)
	if err == nil && ok && account.Profile != nil && account.Profile.Complete() {
		b.generateWeekPlanOrOffer(ctx, chatID, userID, *account.Profile)
		return
	}

	b.flows.Begin(userID, flow.StepProfileSex)
	msg := tgbotapi.NewMessage(chatID, "Начнём анкету. Укажи пол:")
	msg.ReplyMarkup = sexKeyboard()
	b.send(msg)
}

func (b *Bot) handleQuestionnaire(ctx context.Context, chatID, userID int64, step flow.Step, text string) {
	switch step {
	case flow.StepProfileSex:
		if text != btnMale && text != btnFemale {
			msg := tgbotapi.NewMessage(chatID, "Выбери кнопку «Мужчина» или «Женщина».")
			msg.ReplyMarkup = sexKeyboard()
			b.send(msg)
			return
		}
		b.flows.Update(userID, func(s *flow.State) {
			s.Scratch["sex"] = text
			s.Step = flow.StepProfileHeight
		})
		msg := tgbotapi.NewMessage(chatID, "Рост (см):")
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		b.send(msg)

	case flow.StepProfileHeight:
		height, err := strconv.Atoi(text)
		if err != nil || height < 100 || height > 250 {
			b.sendText(chatID, "Введи рост числом в сантиметрах (например, 175).")
			return
		}
		b.flows.Update(userID, func(s *flow.State) {
			s.Scratch["height"] = text
			s.Step = flow.StepProfileWeight
		})
		b.sendText(chatID, "Вес (кг):")

	case flow.StepProfileWeight:
		weight, err := strconv.Atoi(text)
		if err != nil || weight < 30 || weight > 300 {
			b.sendText(chatID, "Введи вес числом в килограммах (например, 70).")
			return
		}
		b.flows.Update(userID, func(s *flow.State) {
			s.Scratch["weight"] = text
			s.Step = flow.StepProfileAge
		})
		b.sendText(chatID, "Возраст:")

	case flow.StepProfileAge:
		age, err := strconv.Atoi(text)
		if err != nil || age < 10 || age > 100 {
			b.sendText(chatID, "Введи возраст числом (например, 30).")
			return
		}
		b.flows.Update(userID, func(s *flow.State) {
			s.Scratch["age"] = text
			s.Step = flow.StepProfileActivity
		})
		msg := tgbotapi.NewMessage(chatID, "Уровень активности?")
		msg.ReplyMarkup = activityKeyboard()
		b.send(msg)

	case flow.StepProfileActivity:
		if text != btnActivityLow && text != btnActivityMid && text != btnActivityHigh {
			msg := tgbotapi.NewMessage(chatID, "Выбери уровень активности кнопкой.")
			msg.ReplyMarkup = activityKeyboard()
			b.send(msg)
			return
		}
		b.flows.Update(userID, func(s *flow.State) {
			s.Scratch["activity"] = text
			s.Step = flow.StepProfileGoal
		})
		msg := tgbotapi.NewMessage(chatID, "Какая цель?")
		msg.ReplyMarkup = goalKeyboard()
		b.send(msg)

	case flow.StepProfileGoal:
		if text != btnGoalLose && text != btnGoalKeep && text != btnGoalGain {
			msg := tgbotapi.NewMessage(chatID, "Выбери цель кнопкой.")
			msg.ReplyMarkup = goalKeyboard()
			b.send(msg)
			return
		}

		state, ok := b.flows.Snapshot(userID)
		if !ok {
			b.sendWithMenu(chatID, userID, "Анкета сброшена. Нажми «📅 Меню на неделю», чтобы начать заново.")
			return
		}
		profile := profileFromScratch(state.Scratch)
		profile.Goal = text

		// The profile is committed before the gate check so a later
		// purchase can generate the plan immediately.
		if err := b.store.SaveProfile(ctx, userID, profile); err != nil {
			b.log.Errorw("Failed to save profile", "user_id", userID, "error", err)
			b.sendText(chatID, "⚠️ Не получилось сохранить анкету. Отправь цель ещё раз.")
			return
		}
		b.flows.Reset(userID)
		b.generateWeekPlanOrOffer(ctx, chatID, userID, profile)
	}
}

// generateWeekPlanOrOffer dispatches plan generation when the user is
// entitled, or presents the purchase affordance while keeping the profile.
func (b *Bot) generateWeekPlanOrOffer(ctx context.Context, chatID, userID int64, profile models.Profile) {
	if !b.ent.Entitled(ctx, userID) {
		b.sendText(chatID, "Анкета принята ✅\nСоздание недельного меню доступно с премиумом.")
		b.sendPurchaseOffer(chatID, userID)
		return
	}
	b.sendText(chatID, "📅 Генерирую меню на неделю под твои параметры…")
	b.spawnGeneration(chatID, userID, "week_plan", func(ctx context.Context) (string, error) {
		return b.gen.WeekPlan(ctx, profile)
	})
}

func profileFromScratch(scratch map[string]string) models.Profile {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(scratch[key])
		return n
	}
	return models.Profile{
		Sex:      scratch["sex"],
		Height:   atoi("height"),
		Weight:   atoi("weight"),
		Age:      atoi("age"),
		Activity: scratch["activity"],
	}
}
