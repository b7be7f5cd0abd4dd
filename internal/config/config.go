// Package config defines the top-level configuration for the cross-exchange
// arbitrage service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Exchanges   ExchangesConfig   `toml:"exchanges"`
	Credentials CredentialsConfig `toml:"credentials"`
	Arbitrage   ArbitrageConfig   `toml:"arbitrage"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// ExchangesConfig groups per-exchange client parameters.
type ExchangesConfig struct {
	Binance  ExchangeConfig `toml:"binance"`
	Coinbase ExchangeConfig `toml:"coinbase"`
}

// ExchangeConfig holds the HTTP parameters for one exchange client.
type ExchangeConfig struct {
	BaseURL       string   `toml:"base_url"`
	Timeout       duration `toml:"timeout"`
	RetryInterval duration `toml:"retry_interval"`
}

// CredentialsConfig holds per-exchange API credentials, either inline or via an
// encrypted keystore file.
type CredentialsConfig struct {
	Binance  APIKeyPair `toml:"binance"`
	Coinbase APIKeyPair `toml:"coinbase"`

	// EncryptedPath points at an AES-GCM encrypted keystore written by the
	// keystore tooling. When set, it takes effect only for exchanges with no
	// inline credentials, and Password must be set alongside it.
	EncryptedPath string `toml:"encrypted_path"`
	Password      string `toml:"password"`
}

// APIKeyPair is one exchange's API key and secret.
type APIKeyPair struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// ArbitrageConfig holds detection and polling parameters.
type ArbitrageConfig struct {
	// Symbols lists the trading pairs to monitor, in exchange-neutral form
	// (e.g. "BTCUSDT").
	Symbols []string `toml:"symbols"`
	// ProfitThreshold is the minimum profit percentage an opportunity must
	// strictly exceed to be reported.
	ProfitThreshold float64  `toml:"profit_threshold"`
	PollInterval    duration `toml:"poll_interval"`
	// StatusCron schedules the exchange reachability probe.
	StatusCron string `toml:"status_cron"`
	// TradeQuantity is the default base-asset quantity per executed trade.
	TradeQuantity float64 `toml:"trade_quantity"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIToken    string   `toml:"api_token"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Exchanges: ExchangesConfig{
			Binance: ExchangeConfig{
				BaseURL:       "https://api.binance.com",
				Timeout:       duration{15 * time.Second},
				RetryInterval: duration{500 * time.Millisecond},
			},
			Coinbase: ExchangeConfig{
				BaseURL:       "https://api.coinbase.com",
				Timeout:       duration{15 * time.Second},
				RetryInterval: duration{500 * time.Millisecond},
			},
		},
		Arbitrage: ArbitrageConfig{
			Symbols:         []string{"BTCUSDT", "ETHUSDT"},
			ProfitThreshold: 0.5,
			PollInterval:    duration{10 * time.Second},
			StatusCron:      "*/1 * * * *",
			TradeQuantity:   0.001,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "trade_executed", "unbalanced_position", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchanges
	if c.Exchanges.Binance.BaseURL == "" {
		errs = append(errs, "exchanges.binance: base_url must not be empty")
	}
	if c.Exchanges.Coinbase.BaseURL == "" {
		errs = append(errs, "exchanges.coinbase: base_url must not be empty")
	}
	if c.Exchanges.Binance.Timeout.Duration < 0 {
		errs = append(errs, "exchanges.binance: timeout must not be negative")
	}
	if c.Exchanges.Coinbase.Timeout.Duration < 0 {
		errs = append(errs, "exchanges.coinbase: timeout must not be negative")
	}

	// Credentials: key and secret must be set together, or both empty.
	for name, pair := range map[string]APIKeyPair{
		"binance":  c.Credentials.Binance,
		"coinbase": c.Credentials.Coinbase,
	} {
		k := pair.APIKey != ""
		s := pair.APISecret != ""
		if k != s {
			errs = append(errs, fmt.Sprintf("credentials.%s: api_key and api_secret must be set together", name))
		}
	}
	if c.Credentials.EncryptedPath != "" && c.Credentials.Password == "" {
		errs = append(errs, "credentials: password is required when encrypted_path is set")
	}

	// Arbitrage
	if len(c.Arbitrage.Symbols) == 0 {
		errs = append(errs, "arbitrage: symbols must not be empty")
	}
	for _, sym := range c.Arbitrage.Symbols {
		if strings.TrimSpace(sym) == "" {
			errs = append(errs, "arbitrage: symbols must not contain blank entries")
			break
		}
	}
	if c.Arbitrage.ProfitThreshold < 0 {
		errs = append(errs, fmt.Sprintf("arbitrage: profit_threshold must not be negative, got %v", c.Arbitrage.ProfitThreshold))
	}
	if c.Arbitrage.PollInterval.Duration <= 0 {
		errs = append(errs, "arbitrage: poll_interval must be > 0")
	}
	if c.Arbitrage.TradeQuantity <= 0 {
		errs = append(errs, "arbitrage: trade_quantity must be > 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
