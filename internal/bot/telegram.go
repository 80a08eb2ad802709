package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/internal/entitlement"
	"calorie-bot/internal/flow"
	"calorie-bot/internal/gpt"
	"calorie-bot/internal/metrics"
	"calorie-bot/internal/parser"
	"calorie-bot/internal/payment"
	"calorie-bot/internal/pricing"
	"calorie-bot/internal/store"
	"calorie-bot/pkg/logger"
)

// Deps carries everything the bot needs besides its token.
type Deps struct {
	Store        store.Store
	Entitlements *entitlement.Service
	Pricing      *pricing.Config
	Generator    *gpt.Client
	Parser       parser.Parser
	Stripe       *payment.StripeClient
	Workers      int
	Logger       *logger.Logger
}

type Bot struct {
	api    *tgbotapi.BotAPI
	store  store.Store
	ent    *entitlement.Service
	price  *pricing.Config
	gen    *gpt.Client
	parser parser.Parser
	stripe *payment.StripeClient
	flows  *flow.Manager
	log    *logger.Logger

	// genSem bounds concurrent external generation calls; the dominant
	// latency source is commonly tens of seconds away.
	genSem chan struct{}
	wg     sync.WaitGroup
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = 4
	}

	deps.Logger.Infow("Authorized on Telegram", "username", api.Self.UserName)

	b := &Bot{
		api:    api,
		store:  deps.Store,
		ent:    deps.Entitlements,
		price:  deps.Pricing,
		gen:    deps.Generator,
		parser: deps.Parser,
		stripe: deps.Stripe,
		flows:  flow.NewManager(),
		log:    deps.Logger,
		genSem: make(chan struct{}, workers),
	}

	// Revoke notifications go out through the bot, best-effort.
	b.ent.SetNotifier(b.notifyUser)

	return b, nil
}

// Start removes any stale webhook and begins long-polling for updates.
func (b *Bot) Start(ctx context.Context) error {
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("Started receiving Telegram updates")

	go b.handleUpdates(ctx, updates)
	return nil
}

func (b *Bot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		b.wg.Add(1)
		go func(update tgbotapi.Update) {
			defer b.wg.Done()
			b.dispatch(ctx, update)
		}(update)
	}
}

// dispatch is the error boundary: one failing handler invocation must never
// terminate the process or block other users.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanicsTotal.Inc()
			b.log.Errorw("Recovered from panic while processing update",
				"update_id", update.UpdateID, "panic", r)
		}
	}()

	metrics.UpdatesTotal.Inc()

	switch {
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		message := update.Message
		switch {
		case message.SuccessfulPayment != nil:
			b.handleSuccessfulPayment(ctx, message)
		case len(message.Photo) > 0:
			b.handlePhoto(ctx, message)
		case message.IsCommand():
			b.handleCommand(ctx, message)
		case message.Text != "":
			b.handleText(ctx, message)
		}
	}
}

// Stop shuts down the update loop and waits for in-flight handlers.
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		metrics.SendErrorsTotal.Inc()
		b.log.Errorw("Failed to send message", "error", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

// sendWithMenu attaches the main reply keyboard for the given user.
func (b *Bot) sendWithMenu(chatID, userID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.mainMenu(userID)
	b.send(msg)
}

// notifyUser delivers a best-effort message to a user's private chat. A
// blocked bot or a closed chat is logged and swallowed.
func (b *Bot) notifyUser(userID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		b.log.Warnw("Failed to notify user", "user_id", userID, "error", err)
	}
}

// spawnGeneration runs one external generation call on the bounded worker
// pool and delivers the result (or an apology) to the same chat. There is
// no cancellation: if the user walks away the result arrives late.
func (b *Bot) spawnGeneration(chatID, userID int64, kind string, task func(ctx context.Context) (string, error)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.HandlerPanicsTotal.Inc()
				b.log.Errorw("Recovered from panic in generation worker",
					"kind", kind, "user_id", userID, "panic", r)
			}
		}()

		b.genSem <- struct{}{}
		defer func() { <-b.genSem }()

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		text, err := task(ctx)
		if err != nil {
			b.log.Errorw("Generation failed", "kind", kind, "user_id", userID, "error", err)
			b.sendWithMenu(chatID, userID, "😔 Не получилось подготовить ответ. Попробуйте ещё раз чуть позже.")
			return
		}
		b.sendWithMenu(chatID, userID, text)
	}()
}
