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

// ArbService runs the detector over fresh quote batches and makes the
// results available for display and execution.
type ArbService struct {
	detector *arbitrage.Detector
	opps     domain.OpportunityCache
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewArbService creates an ArbService. opps, bus, and notifier may be nil.
func NewArbService(
	detector *arbitrage.Detector,
	opps domain.OpportunityCache,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *ArbService {
	return &ArbService{
		detector: detector,
		opps:     opps,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "arb_service")),
	}
}

// Process runs opportunity detection on one batch of simultaneous quotes,
// caches and publishes every qualifying opportunity, and returns them in
// discovery order.
func (s *ArbService) Process(ctx context.Context, quotes []domain.Quote) []domain.Opportunity {
	opps := s.detector.FindOpportunities(quotes)

	for _, opp := range opps {
		s.logger.Info("arbitrage opportunity",
			slog.String("opp_id", opp.ID),
			slog.String("symbol", opp.Symbol),
			slog.String("buy_exchange", opp.BuyExchange),
			slog.String("sell_exchange", opp.SellExchange),
			slog.String("buy_price", opp.BuyPrice.String()),
			slog.String("sell_price", opp.SellPrice.String()),
			slog.String("profit_pct", opp.ProfitPercentage.String()),
		)

		if s.opps != nil {
			if err := s.opps.Put(ctx, opp); err != nil {
				s.logger.Warn("opportunity cache write failed",
					slog.String("opp_id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		if s.bus != nil {
			evt, _ := json.Marshal(opp)
			if err := s.bus.Publish(ctx, "arb", evt); err != nil {
				s.logger.Warn("opportunity publish failed",
					slog.String("opp_id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		if s.notifier != nil {
			title := fmt.Sprintf("Arbitrage: %s %s%% spread", opp.Symbol, opp.ProfitPercentage.StringFixed(2))
			msg := fmt.Sprintf("Buy %s @ %s on %s, sell @ %s on %s",
				opp.Symbol, opp.BuyPrice.String(), opp.BuyExchange,
				opp.SellPrice.String(), opp.SellExchange,
			)
			if err := s.notifier.Notify(ctx, "arb_detected", title, msg); err != nil {
				s.logger.Warn("opportunity notification failed",
					slog.String("opp_id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return opps
}

// ListRecent returns the most recently detected opportunities for the API
// layer, newest first.
func (s *ArbService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if s.opps == nil {
		return nil, nil
	}
	return s.opps.ListRecent(ctx, limit)
}
