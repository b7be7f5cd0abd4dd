// Package binance implements the Binance exchange connector.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/dmelo/crossarb/internal/crypto"
	"github.com/dmelo/crossarb/internal/domain"
)

const (
	// Name is the exchange identifier this connector reports in quotes.
	Name = "Binance"

	defaultBaseURL       = "https://api.binance.com"
	defaultTimeout       = 15 * time.Second
	defaultRetryInterval = 500 * time.Millisecond

	// maxRetries bounds retries of transient failures (network errors and
	// HTTP 429). Other error statuses fail immediately.
	maxRetries = 3
)

// Config holds the connector parameters.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.binance.com".
	BaseURL string
	Timeout time.Duration
	// RetryInterval is the initial exponential-backoff delay between
	// retries. Zero means the default.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Client is the REST connector for the Binance exchange API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retryInterval time.Duration
	logger        *slog.Logger
}

// New creates a Binance connector.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		retryInterval: retryInterval,
		logger:        logger.With(slog.String("exchange", Name)),
	}
}

// Name returns the exchange identifier.
func (c *Client) Name() string { return Name }

// FetchPrice returns the current spot price for a unified symbol such as
// "BTCUSDT", which Binance accepts as-is. Transport failures are demoted to
// domain.ErrUnavailable after the retry policy is exhausted.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	body, err := c.getWithRetry(ctx, c.baseURL+"/api/v3/ticker/price?symbol="+url.QueryEscape(symbol))
	if err != nil {
		c.logger.Warn("price fetch failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return domain.Quote{}, fmt.Errorf("binance: fetch price %s: %w", symbol, domain.ErrUnavailable)
	}

	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("price decode failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return domain.Quote{}, fmt.Errorf("binance: decode price %s: %w", symbol, domain.ErrUnavailable)
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("binance: parse price %q: %w", resp.Price, domain.ErrUnavailable)
	}

	return domain.Quote{
		Exchange:  Name,
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}, nil
}

// PlaceMarketOrder submits a MARKET order. The request parameters are signed
// with HMAC-SHA256 over the query string and the signature is appended as the
// "signature" parameter, with the API key in the X-MBX-APIKEY header. The
// order is attempted exactly once; it is never re-submitted after a response.
func (c *Client) PlaceMarketOrder(ctx context.Context, creds domain.Credentials, symbol string, side domain.OrderSide, quantity float64) domain.TradeResult {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	query := params.Encode()
	signature := crypto.SignQuery(creds.APISecret, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v3/order?"+query+"&signature="+signature, nil)
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("binance: create order request: %v", err)}
	}
	req.Header.Set("X-MBX-APIKEY", creds.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("binance: order request: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("binance: read order response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Msg
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("binance: order rejected (HTTP %d): %s", resp.StatusCode, msg)}
	}

	var order struct {
		OrderID             int64  `json:"orderId"`
		Price               string `json:"price"`
		ExecutedQty         string `json:"executedQty"`
		CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	}
	if err := json.Unmarshal(body, &order); err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("binance: decode order response: %v", err)}
	}

	return domain.TradeResult{
		Success: true,
		OrderID: strconv.FormatInt(order.OrderID, 10),
		Fill: &domain.Fill{
			Price:    parseFloat(order.Price),
			Quantity: parseFloat(order.ExecutedQty),
			Total:    parseFloat(order.CummulativeQuoteQty),
		},
	}
}

// CheckStatus probes the ping endpoint. Display only.
func (c *Client) CheckStatus(ctx context.Context) bool {
	_, err := c.getWithRetry(ctx, c.baseURL+"/api/v3/ping")
	return err == nil
}

// getWithRetry performs a GET request, retrying transient failures (network
// errors and HTTP 429) up to maxRetries times with exponential backoff. All
// other error statuses fail immediately.
func (c *Client) getWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return domain.ErrRateLimited
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
		}

		body = data
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// parseFloat converts an exchange-reported numeric string, returning 0 for
// anything unparseable.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

var _ domain.ExchangeConnector = (*Client)(nil)
