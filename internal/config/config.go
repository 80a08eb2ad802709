// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram struct {
		Token string
	}
	OpenAI struct {
		APIKey      string
		Model       string
		VisionModel string
	}
	Premium struct {
		StarPrice  int           // default invoice price in Telegram Stars
		Days       int           // subscription length granted per purchase
		TrialHours int           // one-time free window
	}
	Admin struct {
		IDs []int64
	}
	Store struct {
		File        string // JSON file backend (default)
		PostgresDSN string // when set, the Postgres backend is used instead
	}
	Stripe struct {
		SecretKey  string
		WebhookKey string
		PriceID    string
	}
	Server struct {
		Port string
	}
	Workers         int
	RestartInterval time.Duration
	ShutdownTimeout time.Duration
}

// Load loads the configuration from config.yaml if present, falling back to
// environment variables for every setting.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.calorie-bot")

	// Set default values
	v.SetDefault("OpenAI.Model", "gpt-4o-mini")
	v.SetDefault("OpenAI.VisionModel", "gpt-4o")
	v.SetDefault("Premium.StarPrice", 100)
	v.SetDefault("Premium.Days", 30)
	v.SetDefault("Premium.TrialHours", 24)
	v.SetDefault("Store.File", "users.json")
	v.SetDefault("Server.Port", "10000")
	v.SetDefault("Workers", 4)
	v.SetDefault("RestartInterval", 24*time.Hour)
	v.SetDefault("ShutdownTimeout", 10*time.Second)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// No config file: build the config entirely from environment variables.
		cfg := &Config{}
		cfg.Telegram.Token = os.Getenv("BOT_TOKEN")
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.OpenAI.Model = getEnvOr("OPENAI_MODEL", "gpt-4o-mini")
		cfg.OpenAI.VisionModel = getEnvOr("OPENAI_VISION_MODEL", "gpt-4o")
		cfg.Premium.StarPrice = getEnvIntOr("STAR_PRICE_PREMIUM", 100)
		cfg.Premium.Days = getEnvIntOr("PREMIUM_DAYS", 30)
		cfg.Premium.TrialHours = getEnvIntOr("TRIAL_HOURS", 24)
		cfg.Admin.IDs = parseAdminIDs(os.Getenv("ADMIN_ID"), os.Getenv("ADMIN_IDS"))
		cfg.Store.File = getEnvOr("DATA_FILE", "users.json")
		cfg.Store.PostgresDSN = os.Getenv("PG_DSN")
		cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
		cfg.Stripe.WebhookKey = os.Getenv("STRIPE_WEBHOOK_KEY")
		cfg.Stripe.PriceID = os.Getenv("STRIPE_PRICE_ID")
		cfg.Server.Port = getEnvOr("PORT", "10000")
		cfg.Workers = getEnvIntOr("WORKERS", 4)
		cfg.RestartInterval = getEnvDurationOr("RESTART_INTERVAL", 24*time.Hour)
		cfg.ShutdownTimeout = getEnvDurationOr("SHUTDOWN_TIMEOUT", 10*time.Second)
		return cfg, nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if len(cfg.Admin.IDs) == 0 {
		cfg.Admin.IDs = parseAdminIDs(os.Getenv("ADMIN_ID"), os.Getenv("ADMIN_IDS"))
	}
	return &cfg, nil
}

// parseAdminIDs merges the single-id and comma-separated list variables,
// ignoring anything that is not a number.
func parseAdminIDs(single, list string) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(single)
	for _, part := range strings.Split(list, ",") {
		add(part)
	}
	return ids
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOr(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOr(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
