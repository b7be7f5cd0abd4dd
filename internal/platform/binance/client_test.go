package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
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

func TestFetchPrice(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("unexpected symbol %q", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50123.45000000"}`))
	}))

	q, err := c.FetchPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if q.Exchange != Name {
		t.Errorf("exchange = %s, want %s", q.Exchange, Name)
	}
	if want := decimal.RequireFromString("50123.45"); !q.Price.Equal(want) {
		t.Errorf("price = %s, want %s", q.Price, want)
	}
	if q.Timestamp.IsZero() {
		t.Error("expected a timestamp on the quote")
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
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000"}`))
	}))

	q, err := c.FetchPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("FetchPrice after 429: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 requests (429 then success), got %d", calls)
	}
	if !q.Price.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("price = %s", q.Price)
	}
}

func TestFetchPriceNoRetryOnServerError(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))

	_, err := c.FetchPrice(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-429 statuses must not be retried, got %d requests", calls)
	}
}

func TestFetchPriceUnavailableAfterRetries(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.FetchPrice(context.Background(), "BTCUSDT")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	// Initial attempt plus maxRetries.
	if calls != maxRetries+1 {
		t.Errorf("expected %d requests, got %d", maxRetries+1, calls)
	}
}

func TestPlaceMarketOrder(t *testing.T) {
	creds := domain.Credentials{APIKey: "test-key", APISecret: "test-secret"}

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-MBX-APIKEY"); got != "test-key" {
			t.Errorf("X-MBX-APIKEY = %q", got)
		}

		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("side") != "BUY" || q.Get("type") != "MARKET" {
			t.Errorf("unexpected order params: %v", q)
		}

		// The signature covers the query string minus the signature itself.
		raw := r.URL.RawQuery
		idx := strings.Index(raw, "&signature=")
		if idx < 0 {
			t.Fatal("missing signature parameter")
		}
		signed, sig := raw[:idx], q.Get("signature")
		if want := crypto.SignQuery("test-secret", signed); sig != want {
			t.Errorf("signature = %s, want %s", sig, want)
		}

		w.Write([]byte(`{"orderId":12345,"price":"50000","executedQty":"0.001","cummulativeQuoteQty":"50"}`))
	}))

	res := c.PlaceMarketOrder(context.Background(), creds, "BTCUSDT", domain.OrderSideBuy, 0.001)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.OrderID != "12345" {
		t.Errorf("order id = %s", res.OrderID)
	}
	if res.Fill == nil || res.Fill.Quantity != 0.001 || res.Fill.Total != 50 {
		t.Errorf("unexpected fill: %+v", res.Fill)
	}
}

func TestPlaceMarketOrderRejected(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance for requested action."}`))
	}))

	res := c.PlaceMarketOrder(context.Background(), domain.Credentials{APIKey: "k", APISecret: "s"}, "BTCUSDT", domain.OrderSideBuy, 1)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "insufficient balance") {
		t.Errorf("error = %q", res.Error)
	}
	if calls != 1 {
		t.Errorf("order placement must never be retried, got %d requests", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	}))
	if !c.CheckStatus(context.Background()) {
		t.Error("expected status up")
	}

	down := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	if down.CheckStatus(context.Background()) {
		t.Error("expected status down")
	}
}
