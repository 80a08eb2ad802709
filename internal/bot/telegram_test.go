package bot

import (
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/entitlement"
	"calorie-bot/internal/flow"
	"calorie-bot/internal/parser"
	"calorie-bot/internal/pricing"
	"calorie-bot/internal/store"
	"calorie-bot/pkg/logger"
)

// fakeTelegramClient answers every Bot API request with a canned success so
// handlers can run without the network. Outbound request parameters are
// captured for assertions.
type fakeTelegramClient struct {
	mu   sync.Mutex
	sent []url.Values
}

func (c *fakeTelegramClient) Do(req *http.Request) (*http.Response, error) {
	values := url.Values{}
	if req.Body != nil {
		if body, err := io.ReadAll(req.Body); err == nil {
			values, _ = url.ParseQuery(string(body))
		}
	}
	c.mu.Lock()
	c.sent = append(c.sent, values)
	c.mu.Unlock()

	body := `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Test","username":"test_bot"}}`
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

// lastText returns the text parameter of the most recent outbound message.
func (c *fakeTelegramClient) lastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if text := c.sent[i].Get("text"); text != "" {
			return text
		}
	}
	return ""
}

func newTestBot(t *testing.T) (*Bot, *fakeTelegramClient) {
	t.Helper()

	client := &fakeTelegramClient{}
	api, err := tgbotapi.NewBotAPIWithClient("test-token", tgbotapi.APIEndpoint, client)
	require.NoError(t, err)

	l := logger.New()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "users.json"), 24*time.Hour, l)
	ent := entitlement.New(st, []int64{999}, l)

	b := &Bot{
		api:    api,
		store:  st,
		ent:    ent,
		price:  pricing.New(100, 30),
		parser: parser.NewRuleParser(),
		flows:  flow.NewManager(),
		log:    l,
		genSem: make(chan struct{}, 1),
	}
	ent.SetNotifier(b.notifyUser)
	return b, client
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
	}
}
