package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the volume engine.
type Config struct {
	Port string

	// MEXC
	MEXCAPIKey    string
	MEXCAPISecret string
	MEXCBaseURL   string
	RecvWindowMs  int
	MaxRetries    int
	RetryBase     time.Duration

	// Trading pair, underscore form (e.g. "ABC_USDT").
	Symbol     string
	BaseAsset  string
	QuoteAsset string

	// Orchestration
	SettleDelay time.Duration

	// Database
	DBPath string

	// Settings bootstrap file (optional)
	SettingsFile string

	// Auth
	JWTSecret string

	// Telegram
	TelegramToken   string
	TelegramChatIDs []string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	symbol := getEnv("TRADE_SYMBOL", "ABC_USDT")
	base, quote := splitSymbol(symbol)

	return &Config{
		Port:            getEnv("PORT", "8080"),
		MEXCAPIKey:      os.Getenv("MEXC_API_KEY"),
		MEXCAPISecret:   os.Getenv("MEXC_API_SECRET"),
		MEXCBaseURL:     getEnv("MEXC_BASE_URL", "https://api.mexc.com"),
		RecvWindowMs:    getEnvInt("MEXC_RECV_WINDOW_MS", 5000),
		MaxRetries:      getEnvInt("MEXC_MAX_RETRIES", 3),
		RetryBase:       time.Duration(getEnvInt("MEXC_RETRY_BASE_MS", 1000)) * time.Millisecond,
		Symbol:          symbol,
		BaseAsset:       base,
		QuoteAsset:      quote,
		SettleDelay:     time.Duration(getEnvInt("SETTLE_DELAY_SECONDS", 10)) * time.Second,
		DBPath:          getEnv("DB_PATH", "./data/volume.db"),
		SettingsFile:    getEnv("SETTINGS_FILE", "./settings.yaml"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatIDs: splitAndTrim(getEnv("TELEGRAM_CHAT_IDS", "")),
	}, nil
}

// PairSymbol returns the exchange wire form of the symbol ("ABCUSDT").
func (c *Config) PairSymbol() string {
	return strings.ReplaceAll(c.Symbol, "_", "")
}

// splitSymbol derives base and quote assets from the underscore form.
func splitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(symbol, "_", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return symbol, "USDT"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
