package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmelo/crossarb/internal/domain"
)

// stubConnector returns a fixed price, optionally failing, and can block on a
// gate to prove fetches overlap.
type stubConnector struct {
	name  string
	price string
	err   error
	gate  *sync.WaitGroup

	mu      sync.Mutex
	fetches int
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) FetchPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()

	if s.gate != nil {
		// Signal arrival, then wait for every other connector to arrive.
		// Deadlocks (and fails the test by timeout) unless Poll runs the
		// fetches concurrently.
		s.gate.Done()
		s.gate.Wait()
	}
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	return domain.Quote{
		Exchange:  s.name,
		Symbol:    symbol,
		Price:     decimal.RequireFromString(s.price),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *stubConnector) PlaceMarketOrder(ctx context.Context, creds domain.Credentials, symbol string, side domain.OrderSide, quantity float64) domain.TradeResult {
	return domain.TradeResult{Success: false, Error: "not implemented"}
}

func (s *stubConnector) CheckStatus(ctx context.Context) bool { return true }

var _ domain.ExchangeConnector = (*stubConnector)(nil)

func TestPollReturnsAllQuotes(t *testing.T) {
	a := &stubConnector{name: "Binance", price: "50000"}
	b := &stubConnector{name: "Coinbase", price: "50300"}
	svc := NewPriceService([]domain.ExchangeConnector{a, b}, nil, nil, slog.Default())

	quotes := svc.Poll(context.Background(), "BTCUSDT")

	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if !quotes[0].Timestamp.Equal(quotes[1].Timestamp) {
		t.Error("quotes from one poll must share a batch timestamp")
	}
	for _, q := range quotes {
		if q.Symbol != "BTCUSDT" {
			t.Errorf("unexpected symbol %s", q.Symbol)
		}
	}
}

func TestPollFetchesConcurrently(t *testing.T) {
	gate := &sync.WaitGroup{}
	gate.Add(2)
	a := &stubConnector{name: "Binance", price: "50000", gate: gate}
	b := &stubConnector{name: "Coinbase", price: "50300", gate: gate}
	svc := NewPriceService([]domain.ExchangeConnector{a, b}, nil, nil, slog.Default())

	done := make(chan []domain.Quote, 1)
	go func() { done <- svc.Poll(context.Background(), "BTCUSDT") }()

	select {
	case quotes := <-done:
		if len(quotes) != 2 {
			t.Fatalf("expected 2 quotes, got %d", len(quotes))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not complete; fetches are not concurrent")
	}
}

func TestPollExcludesUnavailableExchange(t *testing.T) {
	a := &stubConnector{name: "Binance", price: "50000"}
	b := &stubConnector{name: "Coinbase", err: domain.ErrUnavailable}
	svc := NewPriceService([]domain.ExchangeConnector{a, b}, nil, nil, slog.Default())

	quotes := svc.Poll(context.Background(), "BTCUSDT")

	if len(quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(quotes))
	}
	if quotes[0].Exchange != "Binance" {
		t.Errorf("unexpected exchange %s", quotes[0].Exchange)
	}
	if b.fetches != 1 {
		t.Errorf("failing connector should still have been polled once, got %d", b.fetches)
	}
}

func TestPollExcludesInvalidPrices(t *testing.T) {
	a := &stubConnector{name: "Binance", price: "0"}
	b := &stubConnector{name: "Coinbase", price: "50300"}
	svc := NewPriceService([]domain.ExchangeConnector{a, b}, nil, nil, slog.Default())

	quotes := svc.Poll(context.Background(), "BTCUSDT")

	if len(quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(quotes))
	}
	if quotes[0].Exchange != "Coinbase" {
		t.Errorf("unexpected exchange %s", quotes[0].Exchange)
	}
}

func TestExchanges(t *testing.T) {
	svc := NewPriceService([]domain.ExchangeConnector{
		&stubConnector{name: "Binance"},
		&stubConnector{name: "Coinbase"},
	}, nil, nil, slog.Default())

	got := svc.Exchanges()
	if len(got) != 2 || got[0] != "Binance" || got[1] != "Coinbase" {
		t.Errorf("Exchanges() = %v", got)
	}
}
