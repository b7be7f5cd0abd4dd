package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is a detected, threshold-qualifying price gap between two
// quotes for the same symbol. Invariants: BuyPrice < SellPrice and
// ProfitPercentage = (SellPrice - BuyPrice) / BuyPrice * 100, strictly above
// the detector's configured threshold.
type Opportunity struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	BuyExchange      string          `json:"buy_exchange"`
	SellExchange     string          `json:"sell_exchange"`
	BuyPrice         decimal.Decimal `json:"buy_price"`
	SellPrice        decimal.Decimal `json:"sell_price"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	DetectedAt       time.Time       `json:"detected_at"`
}
