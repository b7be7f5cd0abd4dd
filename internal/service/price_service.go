// Package service coordinates the connectors, the detector/executor core,
// the caches, and the signal bus.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmelo/crossarb/internal/domain"
)

// PriceService polls the exchange connectors for spot prices and fans the
// resulting quotes out to the price cache and the signal bus.
type PriceService struct {
	connectors []domain.ExchangeConnector
	priceCache domain.PriceCache
	bus        domain.SignalBus
	logger     *slog.Logger
}

// NewPriceService creates a PriceService. priceCache and bus may be nil, in
// which case quotes are only returned to the caller.
func NewPriceService(
	connectors []domain.ExchangeConnector,
	priceCache domain.PriceCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		connectors: connectors,
		priceCache: priceCache,
		bus:        bus,
		logger:     logger.With(slog.String("component", "price_service")),
	}
}

// Exchanges returns the names of the polled exchanges.
func (s *PriceService) Exchanges() []string {
	names := make([]string, len(s.connectors))
	for i, c := range s.connectors {
		names[i] = c.Name()
	}
	return names
}

// Poll fetches symbol's spot price from every connector concurrently so the
// quotes represent a single market instant, and waits for all fetches to
// finish or fail. Quotes share one batch timestamp. A connector that fails
// (domain.ErrUnavailable) is logged and excluded; one exchange being down
// never halts monitoring of the others. Poll never returns an error.
func (s *PriceService) Poll(ctx context.Context, symbol string) []domain.Quote {
	batchTS := time.Now().UTC()

	results := make([]domain.Quote, len(s.connectors))
	var wg sync.WaitGroup
	for i, conn := range s.connectors {
		wg.Add(1)
		go func(i int, conn domain.ExchangeConnector) {
			defer wg.Done()
			q, err := conn.FetchPrice(ctx, symbol)
			if err != nil {
				if !errors.Is(err, domain.ErrUnavailable) {
					s.logger.Warn("unexpected fetch error",
						slog.String("exchange", conn.Name()),
						slog.String("symbol", symbol),
						slog.String("error", err.Error()),
					)
				}
				return
			}
			q.Timestamp = batchTS
			results[i] = q
		}(i, conn)
	}
	wg.Wait()

	quotes := make([]domain.Quote, 0, len(results))
	for _, q := range results {
		if !q.Valid() {
			continue
		}
		quotes = append(quotes, q)
		s.store(ctx, q)
	}

	return quotes
}

// store caches and publishes one fresh quote. Cache or bus failures are
// logged, never fatal to the poll cycle.
func (s *PriceService) store(ctx context.Context, q domain.Quote) {
	if s.priceCache != nil {
		if err := s.priceCache.SetQuote(ctx, q); err != nil {
			s.logger.Warn("quote cache write failed",
				slog.String("exchange", q.Exchange),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":     "quote",
			"exchange":  q.Exchange,
			"symbol":    q.Symbol,
			"price":     q.Price.String(),
			"timestamp": q.Timestamp.Format(time.RFC3339Nano),
		})
		if err := s.bus.Publish(ctx, "quotes", evt); err != nil {
			s.logger.Warn("quote publish failed",
				slog.String("exchange", q.Exchange),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Quotes returns the latest cached quotes for symbol, for the API layer.
func (s *PriceService) Quotes(ctx context.Context, symbol string) ([]domain.Quote, error) {
	if s.priceCache == nil {
		return nil, nil
	}
	return s.priceCache.GetQuotes(ctx, symbol, s.Exchanges())
}
