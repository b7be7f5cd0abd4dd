package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dmelo/crossarb/internal/arbitrage"
	"github.com/dmelo/crossarb/internal/domain"
	"github.com/dmelo/crossarb/internal/notify"
)

// TradeService executes a chosen opportunity through the two-leg executor.
// It holds the per-exchange credentials resolved at startup; they are passed
// into each execution call and never copied anywhere else.
type TradeService struct {
	executor *arbitrage.Executor
	opps     domain.OpportunityCache
	creds    map[string]domain.Credentials
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewTradeService creates a TradeService.
func NewTradeService(
	executor *arbitrage.Executor,
	opps domain.OpportunityCache,
	creds map[string]domain.Credentials,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		executor: executor,
		opps:     opps,
		creds:    creds,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "trade_service")),
	}
}

// ExecuteTrade looks up a detected opportunity by id and runs the paired
// buy/sell trade for the given quantity. It returns domain.ErrNotFound when
// the opportunity has expired from the cache; execution itself never fails
// with an error, every leg failure is inside the TradeOutcome.
func (s *TradeService) ExecuteTrade(ctx context.Context, opportunityID string, quantity float64) (domain.TradeOutcome, error) {
	if quantity <= 0 {
		return domain.TradeOutcome{}, fmt.Errorf("trade_service: quantity must be positive, got %v", quantity)
	}

	opp, err := s.opps.Get(ctx, opportunityID)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("trade_service: opportunity %s: %w", opportunityID, err)
	}

	outcome := s.executor.Execute(ctx, opp, quantity, s.creds)

	if s.bus != nil {
		evt, _ := json.Marshal(outcome)
		if err := s.bus.Publish(ctx, "trades", evt); err != nil {
			s.logger.Warn("trade outcome publish failed",
				slog.String("outcome_id", outcome.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.notifyOutcome(ctx, outcome)

	return outcome, nil
}

// notifyOutcome raises operator notifications. An unbalanced position gets
// its own event so it can be alerted on distinctly: the asset was bought but
// never sold, and resolving that is an operator responsibility.
func (s *TradeService) notifyOutcome(ctx context.Context, outcome domain.TradeOutcome) {
	if s.notifier == nil {
		return
	}

	opp := outcome.Opportunity
	switch {
	case outcome.Unbalanced():
		title := fmt.Sprintf("UNBALANCED position on %s", opp.Symbol)
		msg := fmt.Sprintf("Buy filled on %s (order %s) but sell FAILED on %s: %s",
			opp.BuyExchange, outcome.Buy.OrderID, opp.SellExchange, outcome.Sell.Error)
		if err := s.notifier.Notify(ctx, "unbalanced_position", title, msg); err != nil {
			s.logger.Warn("unbalanced notification failed", slog.String("error", err.Error()))
		}
	case outcome.Buy.Success && outcome.Sell.Success:
		title := fmt.Sprintf("Trade executed: %s", opp.Symbol)
		msg := fmt.Sprintf("Bought on %s (order %s), sold on %s (order %s)",
			opp.BuyExchange, outcome.Buy.OrderID, opp.SellExchange, outcome.Sell.OrderID)
		if err := s.notifier.Notify(ctx, "trade_executed", title, msg); err != nil {
			s.logger.Warn("trade notification failed", slog.String("error", err.Error()))
		}
	default:
		title := fmt.Sprintf("Trade failed: %s", opp.Symbol)
		msg := fmt.Sprintf("Buy on %s failed: %s", opp.BuyExchange, outcome.Buy.Error)
		if err := s.notifier.Notify(ctx, "error", title, msg); err != nil {
			s.logger.Warn("trade notification failed", slog.String("error", err.Error()))
		}
	}
}
