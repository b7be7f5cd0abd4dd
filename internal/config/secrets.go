package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Credentials
	out.Credentials = cfg.Credentials
	redact(&out.Credentials.Binance.APIKey)
	redact(&out.Credentials.Binance.APISecret)
	redact(&out.Credentials.Coinbase.APIKey)
	redact(&out.Credentials.Coinbase.APISecret)
	redact(&out.Credentials.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.APIToken)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Arbitrage.Symbols != nil {
		out.Arbitrage.Symbols = make([]string, len(cfg.Arbitrage.Symbols))
		copy(out.Arbitrage.Symbols, cfg.Arbitrage.Symbols)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
