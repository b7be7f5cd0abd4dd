package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single exchange's reported spot price for a symbol at a point in
// time. Quotes are created fresh each poll cycle and discarded after use; they
// are never persisted.
type Quote struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Valid reports whether the quote carries a usable price. A zero price is the
// designated "unavailable" value produced by a failed fetch; such quotes must
// be excluded before any pairwise comparison.
func (q Quote) Valid() bool {
	return q.Price.IsPositive()
}
