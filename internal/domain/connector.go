package domain

import "context"

// ExchangeConnector abstracts one exchange's price-fetch and order-placement
// operations. Each implementation encapsulates its exchange's endpoint
// shapes, symbol-format translation, and request-signing scheme; callers
// depend only on this interface.
type ExchangeConnector interface {
	// Name returns the exchange identifier used in quotes and opportunities.
	Name() string

	// FetchPrice returns the current spot price quote for symbol. Raw
	// transport faults never cross this boundary: once the retry policy is
	// exhausted the connector logs a diagnostic and returns an error
	// wrapping ErrUnavailable.
	FetchPrice(ctx context.Context, symbol string) (Quote, error)

	// PlaceMarketOrder submits a market order signed with creds. It never
	// returns an error; every failure is captured in the TradeResult. An
	// order placement is attempted at most once and completes (success or
	// failure) before this returns.
	PlaceMarketOrder(ctx context.Context, creds Credentials, symbol string, side OrderSide, quantity float64) TradeResult

	// CheckStatus is a lightweight reachability probe, used only for
	// display; it is not in the trading path.
	CheckStatus(ctx context.Context) bool
}
