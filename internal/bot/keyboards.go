package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Main-menu button labels. Recognized anywhere: pressing one mid-flow
// clears the active flow and runs the menu action.
const (
	btnBuyPremium   = "⭐ Купить премиум"
	btnCheckPremium = "📊 Проверить премиум"
	btnFoodPhoto    = "📸 КБЖУ по фото"
	btnFoodList     = "🧾 КБЖУ по списку"
	btnRecipes      = "👨‍🍳 Рецепты от ИИ"
	btnWeekMenu     = "📅 Меню на неделю"
	btnAdmin        = "👨‍💻 Админка"
	btnBack         = "⬅️ Назад"
	btnHome         = "🏠 В меню"
	btnRecipeQuery  = "🍳 Рецепт по запросу"
	btnRecipeKcal   = "🔥 Рецепт на калории"
)

// Questionnaire answer labels. Deliberately not menu buttons, so they are
// treated as flow input.
const (
	btnMale   = "Мужчина"
	btnFemale = "Женщина"

	btnActivityLow  = "Низкая"
	btnActivityMid  = "Средняя"
	btnActivityHigh = "Высокая"

	btnGoalLose = "Похудение"
	btnGoalKeep = "Поддержание"
	btnGoalGain = "Набор массы"
)

var menuButtons = map[string]bool{
	btnBuyPremium:   true,
	btnCheckPremium: true,
	btnFoodPhoto:    true,
	btnFoodList:     true,
	btnRecipes:      true,
	btnWeekMenu:     true,
	btnAdmin:        true,
	btnRecipeQuery:  true,
	btnRecipeKcal:   true,
}

func (b *Bot) isMenuButton(text string) bool {
	return menuButtons[text]
}

func (b *Bot) mainMenu(userID int64) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBuyPremium),
			tgbotapi.NewKeyboardButton(btnCheckPremium),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFoodPhoto),
			tgbotapi.NewKeyboardButton(btnFoodList),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnRecipes)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnWeekMenu)),
	}
	if b.ent.IsAdmin(userID) {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAdmin)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func recipesMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnRecipeQuery)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnRecipeKcal)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func sexKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMale),
			tgbotapi.NewKeyboardButton(btnFemale),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func activityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnActivityLow),
			tgbotapi.NewKeyboardButton(btnActivityMid),
			tgbotapi.NewKeyboardButton(btnActivityHigh),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func goalKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGoalLose),
			tgbotapi.NewKeyboardButton(btnGoalKeep),
			tgbotapi.NewKeyboardButton(btnGoalGain),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}
