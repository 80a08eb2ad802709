package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/internal/flow"
)

const defaultGreeting = "Привет! 🤖 Я помогу посчитать КБЖУ еды:\n" +
	"• «📸 КБЖУ по фото» — пришли фото блюда\n" +
	"• «🧾 КБЖУ по списку» — напиши продукты и граммы\n\n" +
	"Также могу подобрать меню на 7 дней под твои параметры — «📅 Меню на неделю».\n" +
	"А ещё — «👨‍🍳 Рецепты от ИИ» (в т.ч. «на калории»).\n\n" +
	"Премиум открывает доп. функции на 30 дней."

const listPromptText = "Пришли список в формате: «Продукт 120 г; ...». Пример:\n" +
	"Кур. грудка 150 г; Рис 180 г; Салат 120 г\n" +
	"Позиции можно разделять точкой с запятой, запятой или новой строкой.\n" +
	"Если граммы не указаны, посчитаю за 100 г."

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch message.Command() {
	case "start":
		b.flows.Reset(userID)
		if _, err := b.store.GetOrCreateAccount(ctx, userID); err != nil {
			b.log.Warnw("Failed to persist new account", "user_id", userID, "error", err)
		}
		greeting, err := b.store.Greeting(ctx)
		if err != nil || greeting == "" {
			greeting = defaultGreeting
		}
		b.sendWithMenu(chatID, userID, greeting)

	case "admin":
		b.handleAdminPanel(chatID, userID)

	case "help":
		b.sendWithMenu(chatID, userID,
			"Я считаю КБЖУ по фото и по списку продуктов, подбираю рецепты и меню на неделю. Используй кнопки меню ниже.")

	default:
		b.sendWithMenu(chatID, userID, "Неизвестная команда. Используйте /start для начала работы.")
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	// The universal "go back" signal is honored regardless of current step.
	if text == btnBack || text == btnHome {
		b.flows.Reset(userID)
		b.sendWithMenu(chatID, userID, "Окей, вернул в меню.")
		return
	}

	// Menu buttons short-circuit an active flow instead of failing its
	// validation.
	if b.isMenuButton(text) {
		b.flows.Reset(userID)
		b.handleMenuButton(ctx, message, text)
		return
	}

	step := b.flows.Current(userID)
	if step == flow.StepNone {
		b.sendWithMenu(chatID, userID, "Выбери действие кнопкой меню ниже или используй /start.")
		return
	}
	b.handleStepText(ctx, message, step)
}

func (b *Bot) handleMenuButton(ctx context.Context, message *tgbotapi.Message, button string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch button {
	case btnBuyPremium:
		b.sendPurchaseOffer(chatID, userID)

	case btnCheckPremium:
		b.sendPremiumStatus(ctx, chatID, userID)

	case btnFoodList:
		if !b.gateFeature(ctx, chatID, userID) {
			return
		}
		b.flows.Begin(userID, flow.StepFoodList)
		b.sendText(chatID, listPromptText)

	case btnFoodPhoto:
		if !b.gateFeature(ctx, chatID, userID) {
			return
		}
		b.flows.Begin(userID, flow.StepFoodPhoto)
		b.sendText(chatID, "Пришли фото блюда крупным планом. В первый раз доступ открыт на 24 часа (пробный).")

	case btnRecipes:
		msg := tgbotapi.NewMessage(chatID, "Выбери режим:")
		msg.ReplyMarkup = recipesMenu()
		b.send(msg)

	case btnRecipeQuery:
		b.flows.Begin(userID, flow.StepRecipeQuery)
		b.sendText(chatID, "Что хочешь приготовить? Опиши кратко (ингредиенты, кухня и т.п.).")

	case btnRecipeKcal:
		b.flows.Begin(userID, flow.StepRecipeKcal)
		b.sendText(chatID, "Сколько калорий нужно? (например: 600)")

	case btnWeekMenu:
		b.handleWeekMenu(ctx, chatID, userID)

	case btnAdmin:
		b.handleAdminPanel(chatID, userID)
	}
}

func (b *Bot) handleStepText(ctx context.Context, message *tgbotapi.Message, step flow.Step) {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	switch step {
	case flow.StepFoodList:
		b.handleListInput(ctx, chatID, userID, text)

	case flow.StepRecipeQuery:
		b.flows.Reset(userID)
		b.sendText(chatID, "👨‍🍳 Подбираю рецепт…")
		b.spawnGeneration(chatID, userID, "recipe", func(ctx context.Context) (string, error) {
			return b.gen.Recipe(ctx, text)
		})

	case flow.StepRecipeKcal:
		kcal, err := strconv.Atoi(text)
		if err != nil || kcal < 50 || kcal > 5000 {
			b.sendText(chatID, "Введи число калорий от 50 до 5000 (например: 600).")
			return
		}
		b.flows.Reset(userID)
		b.sendText(chatID, "🔥 Подбираю рецепт под калории…")
		b.spawnGeneration(chatID, userID, "recipe_kcal", func(ctx context.Context) (string, error) {
			return b.gen.RecipeForCalories(ctx, kcal)
		})

	case flow.StepProfileSex, flow.StepProfileHeight, flow.StepProfileWeight,
		flow.StepProfileAge, flow.StepProfileActivity, flow.StepProfileGoal:
		b.handleQuestionnaire(ctx, chatID, userID, step, text)

	case flow.StepFoodPhoto:
		// Text while a photo is awaited: remind and keep waiting.
		b.sendText(chatID, "Жду фото блюда 📸 Пришли его изображением или нажми «⬅️ Назад».")

	case flow.StepAdminGrant, flow.StepAdminRevoke, flow.StepAdminPrice,
		flow.StepAdminBroadcast, flow.StepAdminGreeting:
		b.handleAdminStep(ctx, message, step)

	default:
		// Unknown state, reset to the menu.
		b.flows.Reset(userID)
		b.sendWithMenu(chatID, userID, "Извините, произошла ошибка. Используйте /start для начала заново.")
	}
}

// gateFeature runs the entitlement check shared by the gated features,
// starting the one-time trial on first use. On denial it presents the
// purchase affordance and returns false.
func (b *Bot) gateFeature(ctx context.Context, chatID, userID int64) bool {
	if err := b.ent.StartTrialIfNeeded(ctx, userID); err != nil {
		b.log.Warnw("Failed to start trial", "user_id", userID, "error", err)
	}
	if b.ent.Entitled(ctx, userID) {
		return true
	}
	b.sendPurchaseOffer(chatID, userID)
	return false
}

func (b *Bot) handleListInput(ctx context.Context, chatID, userID int64, text string) {
	parseCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	items, unresolved := b.parser.Parse(parseCtx, text)

	if len(items) == 0 {
		// Validation failure: re-prompt and stay in the same step.
		b.sendText(chatID, "⚠️ Не понял ни одной позиции. "+listPromptText)
		return
	}
	b.flows.Reset(userID)

	var lines []string
	lines = append(lines, "Ваш список:")
	for _, item := range items {
		line := fmt.Sprintf("• %s — %d г", item.Name, item.Grams)
		if item.Assumed {
			line += " (граммы не указаны, взял 100 г)"
		}
		lines = append(lines, line)
	}
	for _, fragment := range unresolved {
		lines = append(lines, fmt.Sprintf("⚠️ Не понял позицию: «%s»", fragment))
	}
	lines = append(lines, "", "🧮 Считаю КБЖУ…")
	b.sendText(chatID, strings.Join(lines, "\n"))

	b.spawnGeneration(chatID, userID, "list_estimate", func(ctx context.Context) (string, error) {
		return b.gen.EstimateItems(ctx, items)
	})
}

// handlePhoto consumes photos only while the awaiting-photo step is active;
// stray photos get a pointer to the menu button instead of being analyzed.
func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	if b.flows.Current(userID) != flow.StepFoodPhoto {
		b.sendWithMenu(chatID, userID, "Чтобы получить КБЖУ по фото, сначала нажми «📸 КБЖУ по фото».")
		return
	}

	// Re-check the gate: the trial may have expired since the button press.
	if !b.ent.Entitled(ctx, userID) {
		b.flows.Reset(userID)
		b.sendPurchaseOffer(chatID, userID)
		return
	}

	// The largest size is last.
	fileID := message.Photo[len(message.Photo)-1].FileID
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		b.flows.Reset(userID)
		b.log.Errorw("Failed to resolve photo URL", "user_id", userID, "error", err)
		b.sendWithMenu(chatID, userID, "😔 Не получилось загрузить фото. Попробуйте ещё раз.")
		return
	}

	b.flows.Reset(userID)
	b.sendText(chatID, "🧠 Анализирую фото…")
	b.spawnGeneration(chatID, userID, "photo_estimate", func(ctx context.Context) (string, error) {
		return b.gen.EstimatePhoto(ctx, fileURL)
	})
}

func (b *Bot) sendPremiumStatus(ctx context.Context, chatID, userID int64) {
	if b.ent.IsAdmin(userID) {
		b.sendWithMenu(chatID, userID, "✅ Премиум всегда активен (администратор).")
		return
	}
	if !b.ent.HasPremium(ctx, userID) {
		b.sendWithMenu(chatID, userID, "❌ Премиум не активен.")
		return
	}
	account, _, err := b.store.Account(ctx, userID)
	if err != nil {
		b.sendWithMenu(chatID, userID, "✅ Премиум активен.")
		return
	}
	expiry := time.Unix(account.PremiumUntil, 0).Format("02.01.2006")
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Премиум активен до <b>%s</b>.", expiry))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = b.mainMenu(userID)
	b.send(msg)
}
