package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Fill describes the executed portion of a market order as reported by the
// exchange. These are display values; no comparison arithmetic runs on them.
type Fill struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
}

// TradeResult is the outcome of one leg of a paired trade. Connectors never
// let a failure escape as an error: a rejected, unauthorized, or unreachable
// order placement is represented here with Success=false and a descriptive
// Error message.
type TradeResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Fill    *Fill  `json:"fill,omitempty"`
}

// TradeOutcome pairs the buy and sell leg results of one arbitrage execution.
// Both results are reported independently: a successful buy with a failed
// sell is a valid terminal outcome that leaves net exposure on the buy
// exchange, and it is the caller's responsibility to surface and resolve it.
type TradeOutcome struct {
	ID          string       `json:"id"`
	Opportunity Opportunity  `json:"opportunity"`
	Quantity    float64      `json:"quantity"`
	Buy         TradeResult  `json:"buy_result"`
	Sell        TradeResult  `json:"sell_result"`
	ExecutedAt  time.Time    `json:"executed_at"`
}

// Unbalanced reports whether the outcome left an open position: the buy leg
// filled but the sell leg did not.
func (o TradeOutcome) Unbalanced() bool {
	return o.Buy.Success && !o.Sell.Success
}
