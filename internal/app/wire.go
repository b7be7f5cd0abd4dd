package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmelo/crossarb/internal/cache/redis"
	"github.com/dmelo/crossarb/internal/config"
	"github.com/dmelo/crossarb/internal/crypto"
	"github.com/dmelo/crossarb/internal/domain"
	"github.com/dmelo/crossarb/internal/notify"
	"github.com/dmelo/crossarb/internal/platform/binance"
	"github.com/dmelo/crossarb/internal/platform/coinbase"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Exchange connectors, in configuration order.
	Connectors []domain.ExchangeConnector

	// Caches and the signal bus.
	PriceCache       domain.PriceCache
	OpportunityCache domain.OpportunityCache
	StatusCache      domain.StatusCache
	SignalBus        domain.SignalBus

	// Credentials keyed by exchange name. Empty when no source is
	// configured; execution then fails per-leg with a missing-credentials
	// result instead of at startup.
	Credentials map[string]domain.Credentials

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Exchange connectors ---
	deps.Connectors = []domain.ExchangeConnector{
		binance.New(binance.Config{
			BaseURL:       cfg.Exchanges.Binance.BaseURL,
			Timeout:       cfg.Exchanges.Binance.Timeout.Duration,
			RetryInterval: cfg.Exchanges.Binance.RetryInterval.Duration,
			Logger:        logger,
		}),
		coinbase.New(coinbase.Config{
			BaseURL:       cfg.Exchanges.Coinbase.BaseURL,
			Timeout:       cfg.Exchanges.Coinbase.Timeout.Duration,
			RetryInterval: cfg.Exchanges.Coinbase.RetryInterval.Duration,
			Logger:        logger,
		}),
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.OpportunityCache = redis.NewOpportunityCache(redisClient)
	deps.StatusCache = redis.NewStatusCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Credentials ---
	raw := make(map[string]domain.Credentials)
	if cfg.Credentials.Binance.APIKey != "" {
		raw[binance.Name] = domain.Credentials{
			APIKey:    cfg.Credentials.Binance.APIKey,
			APISecret: cfg.Credentials.Binance.APISecret,
		}
	}
	if cfg.Credentials.Coinbase.APIKey != "" {
		raw[coinbase.Name] = domain.Credentials{
			APIKey:    cfg.Credentials.Coinbase.APIKey,
			APISecret: cfg.Credentials.Coinbase.APISecret,
		}
	}
	if len(raw) > 0 || cfg.Credentials.EncryptedPath != "" {
		creds, err := crypto.LoadCredentials(crypto.StoreConfig{
			Raw:           raw,
			EncryptedPath: cfg.Credentials.EncryptedPath,
			Password:      cfg.Credentials.Password,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: credentials: %w", err)
		}
		deps.Credentials = creds
	} else {
		logger.Warn("no exchange credentials configured; trade execution will fail per-leg")
		deps.Credentials = map[string]domain.Credentials{}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
