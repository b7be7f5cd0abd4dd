package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmelo/crossarb/internal/domain"
)

// SellNotAttempted is the sell-leg error reported when the buy leg failed and
// the sell order was deliberately skipped.
const SellNotAttempted = "Buy order failed, sell order not attempted"

// Executor drives the two-leg trade for a chosen opportunity. The legs are
// strictly sequential: the buy must complete and be inspected before the sell
// is issued. There is no atomicity across exchanges; an unbalanced outcome
// (buy filled, sell failed) is represented in the result, not resolved here.
type Executor struct {
	connectors map[string]domain.ExchangeConnector
	logger     *slog.Logger
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	Connectors []domain.ExchangeConnector
	Logger     *slog.Logger
}

// NewExecutor creates an executor routing legs to the given connectors by
// exchange name.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	connectors := make(map[string]domain.ExchangeConnector, len(cfg.Connectors))
	for _, c := range cfg.Connectors {
		connectors[c.Name()] = c
	}
	return &Executor{
		connectors: connectors,
		logger:     logger.With(slog.String("component", "arb_executor")),
	}
}

// Execute places the buy leg on opp.BuyExchange and, only if it succeeds, the
// sell leg on opp.SellExchange. If the buy leg fails the sell order is never
// attempted and its result states so. Both leg results are returned
// independently; order placement is never retried here.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, quantity float64, creds map[string]domain.Credentials) domain.TradeOutcome {
	log := e.logger.With(
		slog.String("opp_id", opp.ID),
		slog.String("symbol", opp.Symbol),
		slog.Float64("quantity", quantity),
	)

	outcome := domain.TradeOutcome{
		ID:          uuid.New().String(),
		Opportunity: opp,
		Quantity:    quantity,
		ExecutedAt:  time.Now().UTC(),
	}

	outcome.Buy = e.placeLeg(ctx, opp.BuyExchange, opp.Symbol, domain.OrderSideBuy, quantity, creds)
	if !outcome.Buy.Success {
		log.Warn("buy leg failed, sell leg not attempted",
			slog.String("buy_exchange", opp.BuyExchange),
			slog.String("error", outcome.Buy.Error),
		)
		outcome.Sell = domain.TradeResult{Success: false, Error: SellNotAttempted}
		return outcome
	}

	log.Info("buy leg filled",
		slog.String("buy_exchange", opp.BuyExchange),
		slog.String("order_id", outcome.Buy.OrderID),
	)

	// The opportunity is not re-validated between the legs; the sell is
	// issued even if the market moved after the buy confirmation.
	outcome.Sell = e.placeLeg(ctx, opp.SellExchange, opp.Symbol, domain.OrderSideSell, quantity, creds)

	if outcome.Unbalanced() {
		log.Error("sell leg failed after successful buy, position is unbalanced",
			slog.String("sell_exchange", opp.SellExchange),
			slog.String("error", outcome.Sell.Error),
		)
	} else {
		log.Info("sell leg filled",
			slog.String("sell_exchange", opp.SellExchange),
			slog.String("order_id", outcome.Sell.OrderID),
		)
	}

	return outcome
}

// placeLeg routes one order to the connector for the named exchange. Routing
// problems (unknown exchange, missing credentials) are leg failures like any
// other; they never escape as errors.
func (e *Executor) placeLeg(ctx context.Context, exchange, symbol string, side domain.OrderSide, quantity float64, creds map[string]domain.Credentials) domain.TradeResult {
	conn, ok := e.connectors[exchange]
	if !ok {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("unknown exchange %q", exchange)}
	}
	c, ok := creds[exchange]
	if !ok {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("no credentials configured for %q", exchange)}
	}
	return conn.PlaceMarketOrder(ctx, c, symbol, side, quantity)
}
