package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchanges ──
	setStr(&cfg.Exchanges.Binance.BaseURL, "CROSSARB_BINANCE_BASE_URL")
	setDuration(&cfg.Exchanges.Binance.Timeout, "CROSSARB_BINANCE_TIMEOUT")
	setDuration(&cfg.Exchanges.Binance.RetryInterval, "CROSSARB_BINANCE_RETRY_INTERVAL")
	setStr(&cfg.Exchanges.Coinbase.BaseURL, "CROSSARB_COINBASE_BASE_URL")
	setDuration(&cfg.Exchanges.Coinbase.Timeout, "CROSSARB_COINBASE_TIMEOUT")
	setDuration(&cfg.Exchanges.Coinbase.RetryInterval, "CROSSARB_COINBASE_RETRY_INTERVAL")

	// ── Credentials ──
	setStr(&cfg.Credentials.Binance.APIKey, "CROSSARB_BINANCE_API_KEY")
	setStr(&cfg.Credentials.Binance.APISecret, "CROSSARB_BINANCE_API_SECRET")
	setStr(&cfg.Credentials.Coinbase.APIKey, "CROSSARB_COINBASE_API_KEY")
	setStr(&cfg.Credentials.Coinbase.APISecret, "CROSSARB_COINBASE_API_SECRET")
	setStr(&cfg.Credentials.EncryptedPath, "CROSSARB_CREDENTIALS_ENCRYPTED_PATH")
	setStr(&cfg.Credentials.Password, "CROSSARB_CREDENTIALS_PASSWORD")

	// ── Arbitrage ──
	setStringSlice(&cfg.Arbitrage.Symbols, "CROSSARB_ARBITRAGE_SYMBOLS")
	setFloat64(&cfg.Arbitrage.ProfitThreshold, "CROSSARB_ARBITRAGE_PROFIT_THRESHOLD")
	setDuration(&cfg.Arbitrage.PollInterval, "CROSSARB_ARBITRAGE_POLL_INTERVAL")
	setStr(&cfg.Arbitrage.StatusCron, "CROSSARB_ARBITRAGE_STATUS_CRON")
	setFloat64(&cfg.Arbitrage.TradeQuantity, "CROSSARB_ARBITRAGE_TRADE_QUANTITY")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CROSSARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")
	setStr(&cfg.Server.APIToken, "CROSSARB_SERVER_API_TOKEN")
	setStringSlice(&cfg.Server.CORSOrigins, "CROSSARB_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSARB_MODE")
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
