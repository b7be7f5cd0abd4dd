// Package arbitrage contains the price-discrepancy detector and the two-leg
// trade executor.
package arbitrage

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmelo/crossarb/internal/domain"
)

// DefaultThreshold is the minimum profit percentage an opportunity must
// strictly exceed when no threshold is configured.
var DefaultThreshold = decimal.NewFromFloat(0.5)

var hundred = decimal.NewFromInt(100)

// Detector finds qualifying arbitrage opportunities in a set of simultaneous
// price quotes.
type Detector struct {
	threshold decimal.Decimal
	logger    *slog.Logger
}

// DetectorConfig configures the detector.
type DetectorConfig struct {
	// Threshold is the profit percentage an opportunity must strictly
	// exceed. Zero means DefaultThreshold.
	Threshold decimal.Decimal
	Logger    *slog.Logger
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg DetectorConfig) *Detector {
	threshold := cfg.Threshold
	if threshold.IsZero() {
		threshold = DefaultThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		threshold: threshold,
		logger:    logger.With(slog.String("component", "arb_detector")),
	}
}

// Threshold returns the configured profit-percentage threshold.
func (d *Detector) Threshold() decimal.Decimal {
	return d.threshold
}

// FindOpportunities compares every unordered pair of quotes and returns the
// pairs whose profit percentage strictly exceeds the threshold. Quotes with a
// non-positive price are excluded, equal-priced pairs produce nothing, and
// quotes for different symbols are never cross-compared. All opportunities in
// one call share a single detection timestamp, and the output preserves the
// discovery order of the pairs; no sorting is applied.
//
// Fewer than two valid quotes yields an empty result, never an error.
func (d *Detector) FindOpportunities(quotes []domain.Quote) []domain.Opportunity {
	if len(quotes) < 2 {
		return nil
	}

	detectedAt := time.Now().UTC()

	var opps []domain.Opportunity
	for i := 0; i < len(quotes); i++ {
		for j := i + 1; j < len(quotes); j++ {
			low, high := quotes[i], quotes[j]
			if low.Symbol != high.Symbol {
				continue
			}
			if !low.Valid() || !high.Valid() {
				continue
			}

			switch low.Price.Cmp(high.Price) {
			case 0:
				// Equal prices: no opportunity.
				continue
			case 1:
				low, high = high, low
			}

			profit := high.Price.Sub(low.Price).Div(low.Price).Mul(hundred)
			if profit.LessThanOrEqual(d.threshold) {
				continue
			}

			opp := domain.Opportunity{
				ID:               uuid.New().String(),
				Symbol:           low.Symbol,
				BuyExchange:      low.Exchange,
				SellExchange:     high.Exchange,
				BuyPrice:         low.Price,
				SellPrice:        high.Price,
				ProfitPercentage: profit,
				DetectedAt:       detectedAt,
			}
			opps = append(opps, opp)

			d.logger.Debug("opportunity detected",
				slog.String("symbol", opp.Symbol),
				slog.String("buy_exchange", opp.BuyExchange),
				slog.String("sell_exchange", opp.SellExchange),
				slog.String("profit_pct", profit.String()),
			)
		}
	}

	return opps
}
