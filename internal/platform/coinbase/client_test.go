package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmelo/crossarb/internal/crypto"
	"github.com/dmelo/crossarb/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
		RetryInterval: time.Millisecond,
	})
}

func TestProductID(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTCUSDT", "BTC-USD"},
		{"ETHUSDT", "ETH-USD"},
		{"SOLUSDT", "SOL-USD"},
	}
	for _, tt := range tests {
		if got := ProductID(tt.symbol); got != tt.want {
			t.Errorf("ProductID(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestFetchPrice(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/prices/BTC-USD/spot" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"base":"BTC","currency":"USD","amount":"50250.12"}}`))
	}))

	q, err := c.FetchPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if q.Exchange != Name {
		t.Errorf("exchange = %s, want %s", q.Exchange, Name)
	}
	// The quote keeps the unified symbol, not the exchange product id.
	if q.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s, want BTCUSDT", q.Symbol)
	}
	if want := decimal.RequireFromString("50250.12"); !q.Price.Equal(want) {
		t.Errorf("price = %s, want %s", q.Price, want)
	}
}

func TestFetchPriceRetriesOnRateLimit(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"base":"BTC","currency":"USD","amount":"50000"}}`))
	}))

	if _, err := c.FetchPrice(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("FetchPrice after 429: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
}

func TestFetchPriceUnavailable(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"message":"Not found"}]}`))
	}))

	_, err := c.FetchPrice(context.Background(), "BTCUSDT")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPlaceMarketOrder(t *testing.T) {
	creds := domain.Credentials{APIKey: "cb-key", APISecret: "cb-secret"}

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/trades" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		var order map[string]string
		if err := json.Unmarshal(body, &order); err != nil {
			t.Fatalf("decode order body: %v", err)
		}
		if order["product_id"] != "BTC-USD" || order["side"] != "buy" {
			t.Errorf("unexpected order body: %v", order)
		}

		if got := r.Header.Get("CB-ACCESS-KEY"); got != "cb-key" {
			t.Errorf("CB-ACCESS-KEY = %q", got)
		}
		ts := r.Header.Get("CB-ACCESS-TIMESTAMP")
		if ts == "" {
			t.Fatal("missing CB-ACCESS-TIMESTAMP")
		}
		wantSig := crypto.CoinbaseHeadersAt("cb-key", "cb-secret", http.MethodPost, "/v2/trades", string(body), mustInt(t, ts))["CB-ACCESS-SIGN"]
		if got := r.Header.Get("CB-ACCESS-SIGN"); got != wantSig {
			t.Errorf("CB-ACCESS-SIGN = %s, want %s", got, wantSig)
		}

		w.Write([]byte(`{"data":{"id":"t-77","price":"50250","size":"0.001","funds":"50.25"}}`))
	}))

	res := c.PlaceMarketOrder(context.Background(), creds, "BTCUSDT", domain.OrderSideBuy, 0.001)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.OrderID != "t-77" {
		t.Errorf("order id = %s", res.OrderID)
	}
	if res.Fill == nil || res.Fill.Price != 50250 || res.Fill.Total != 50.25 {
		t.Errorf("unexpected fill: %+v", res.Fill)
	}
}

func TestPlaceMarketOrderRejected(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"errors":[{"message":"Insufficient funds"}]}`))
	}))

	res := c.PlaceMarketOrder(context.Background(), domain.Credentials{APIKey: "k", APISecret: "s"}, "BTCUSDT", domain.OrderSideSell, 1)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "Insufficient funds") {
		t.Errorf("error = %q", res.Error)
	}
	if calls != 1 {
		t.Errorf("order placement must never be retried, got %d requests", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/currencies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	if !c.CheckStatus(context.Background()) {
		t.Error("expected status up")
	}
}

func mustInt(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return n
}
