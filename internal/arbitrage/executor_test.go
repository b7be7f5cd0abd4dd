package arbitrage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmelo/crossarb/internal/domain"
)

// fakeConnector records placed orders and returns canned results per side.
type fakeConnector struct {
	name    string
	results map[domain.OrderSide]domain.TradeResult
	placed  []domain.OrderSide
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) FetchPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	return domain.Quote{}, domain.ErrUnavailable
}

func (f *fakeConnector) PlaceMarketOrder(ctx context.Context, creds domain.Credentials, symbol string, side domain.OrderSide, quantity float64) domain.TradeResult {
	f.placed = append(f.placed, side)
	return f.results[side]
}

func (f *fakeConnector) CheckStatus(ctx context.Context) bool { return true }

var _ domain.ExchangeConnector = (*fakeConnector)(nil)

func testOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:               "opp-1",
		Symbol:           "BTCUSDT",
		BuyExchange:      "Binance",
		SellExchange:     "Coinbase",
		BuyPrice:         decimal.RequireFromString("50000"),
		SellPrice:        decimal.RequireFromString("50300"),
		ProfitPercentage: decimal.RequireFromString("0.6"),
		DetectedAt:       time.Now().UTC(),
	}
}

func testCreds() map[string]domain.Credentials {
	return map[string]domain.Credentials{
		"Binance":  {APIKey: "bk", APISecret: "bs"},
		"Coinbase": {APIKey: "ck", APISecret: "cs"},
	}
}

func ok(orderID string) domain.TradeResult {
	return domain.TradeResult{Success: true, OrderID: orderID, Fill: &domain.Fill{Price: 50000, Quantity: 0.001, Total: 50}}
}

func fail(msg string) domain.TradeResult {
	return domain.TradeResult{Success: false, Error: msg}
}

func TestExecuteBothLegsSucceed(t *testing.T) {
	buyer := &fakeConnector{name: "Binance", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideBuy: ok("b-1"),
	}}
	seller := &fakeConnector{name: "Coinbase", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideSell: ok("s-1"),
	}}
	exec := NewExecutor(ExecutorConfig{Connectors: []domain.ExchangeConnector{buyer, seller}})

	outcome := exec.Execute(context.Background(), testOpportunity(), 0.001, testCreds())

	if !outcome.Buy.Success || !outcome.Sell.Success {
		t.Fatalf("expected both legs to succeed: buy=%+v sell=%+v", outcome.Buy, outcome.Sell)
	}
	if outcome.Buy.OrderID != "b-1" || outcome.Sell.OrderID != "s-1" {
		t.Errorf("unexpected order ids: buy=%s sell=%s", outcome.Buy.OrderID, outcome.Sell.OrderID)
	}
	if outcome.Unbalanced() {
		t.Error("a fully filled outcome must not be unbalanced")
	}
	if len(buyer.placed) != 1 || buyer.placed[0] != domain.OrderSideBuy {
		t.Errorf("expected exactly one buy on the buy exchange, got %v", buyer.placed)
	}
	if len(seller.placed) != 1 || seller.placed[0] != domain.OrderSideSell {
		t.Errorf("expected exactly one sell on the sell exchange, got %v", seller.placed)
	}
}

func TestExecuteBuyFailsSellNeverAttempted(t *testing.T) {
	buyer := &fakeConnector{name: "Binance", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideBuy: fail("insufficient balance"),
	}}
	seller := &fakeConnector{name: "Coinbase", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideSell: ok("s-1"),
	}}
	exec := NewExecutor(ExecutorConfig{Connectors: []domain.ExchangeConnector{buyer, seller}})

	outcome := exec.Execute(context.Background(), testOpportunity(), 0.001, testCreds())

	if outcome.Buy.Success {
		t.Fatal("expected buy leg to fail")
	}
	if outcome.Buy.Error != "insufficient balance" {
		t.Errorf("unexpected buy error: %q", outcome.Buy.Error)
	}
	if len(seller.placed) != 0 {
		t.Fatalf("sell order must never be placed after a failed buy, got %v", seller.placed)
	}
	if outcome.Sell.Success {
		t.Error("sell result must report failure")
	}
	if outcome.Sell.Error != SellNotAttempted {
		t.Errorf("expected sell error %q, got %q", SellNotAttempted, outcome.Sell.Error)
	}
	if outcome.Unbalanced() {
		t.Error("a failed buy leaves no position, outcome must not be unbalanced")
	}
}

func TestExecuteSellFailsAfterBuy(t *testing.T) {
	buyer := &fakeConnector{name: "Binance", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideBuy: ok("b-1"),
	}}
	seller := &fakeConnector{name: "Coinbase", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideSell: fail("market closed"),
	}}
	exec := NewExecutor(ExecutorConfig{Connectors: []domain.ExchangeConnector{buyer, seller}})

	outcome := exec.Execute(context.Background(), testOpportunity(), 0.001, testCreds())

	if !outcome.Buy.Success {
		t.Fatal("expected buy leg to succeed")
	}
	if outcome.Sell.Success {
		t.Fatal("expected sell leg to fail")
	}
	if outcome.Sell.Error != "market closed" {
		t.Errorf("unexpected sell error: %q", outcome.Sell.Error)
	}
	if !outcome.Unbalanced() {
		t.Error("buy filled with failed sell must be reported as unbalanced")
	}
}

func TestExecuteUnknownExchange(t *testing.T) {
	seller := &fakeConnector{name: "Coinbase", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideSell: ok("s-1"),
	}}
	exec := NewExecutor(ExecutorConfig{Connectors: []domain.ExchangeConnector{seller}})

	outcome := exec.Execute(context.Background(), testOpportunity(), 0.001, testCreds())

	if outcome.Buy.Success {
		t.Fatal("expected buy leg to fail for unknown exchange")
	}
	if outcome.Buy.Error != `unknown exchange "Binance"` {
		t.Errorf("unexpected buy error: %q", outcome.Buy.Error)
	}
	if len(seller.placed) != 0 {
		t.Error("sell must not be attempted when buy routing fails")
	}
}

func TestExecuteMissingCredentials(t *testing.T) {
	buyer := &fakeConnector{name: "Binance", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideBuy: ok("b-1"),
	}}
	seller := &fakeConnector{name: "Coinbase", results: map[domain.OrderSide]domain.TradeResult{
		domain.OrderSideSell: ok("s-1"),
	}}
	exec := NewExecutor(ExecutorConfig{Connectors: []domain.ExchangeConnector{buyer, seller}})

	creds := map[string]domain.Credentials{
		"Binance": {APIKey: "bk", APISecret: "bs"},
	}
	outcome := exec.Execute(context.Background(), testOpportunity(), 0.001, creds)

	if !outcome.Buy.Success {
		t.Fatal("expected buy leg to succeed")
	}
	if outcome.Sell.Success {
		t.Fatal("expected sell leg to fail without credentials")
	}
	if outcome.Sell.Error != `no credentials configured for "Coinbase"` {
		t.Errorf("unexpected sell error: %q", outcome.Sell.Error)
	}
	if !outcome.Unbalanced() {
		t.Error("missing sell credentials after a filled buy is an unbalanced outcome")
	}
}
