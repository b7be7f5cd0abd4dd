// Package coinbase implements the Coinbase exchange connector.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
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
	Name = "Coinbase"

	defaultBaseURL       = "https://api.coinbase.com"
	defaultTimeout       = 15 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	maxRetries           = 3

	tradePath = "/v2/trades"
)

// Config holds the connector parameters.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.coinbase.com".
	BaseURL string
	Timeout time.Duration
	// RetryInterval is the initial exponential-backoff delay between
	// retries. Zero means the default.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Client is the REST connector for the Coinbase API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retryInterval time.Duration
	logger        *slog.Logger
}

// New creates a Coinbase connector.
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

// ProductID translates a unified USDT-quoted symbol into Coinbase's dashed
// USD product form, e.g. "BTCUSDT" -> "BTC-USD". Every exchange-bound call
// goes through this translation.
func ProductID(symbol string) string {
	return strings.Replace(symbol, "USDT", "-USD", 1)
}

// FetchPrice returns the current spot price for a unified symbol. Transport
// failures are demoted to domain.ErrUnavailable after the retry policy is
// exhausted.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	body, err := c.getWithRetry(ctx, c.baseURL+"/v2/prices/"+ProductID(symbol)+"/spot")
	if err != nil {
		c.logger.Warn("price fetch failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return domain.Quote{}, fmt.Errorf("coinbase: fetch price %s: %w", symbol, domain.ErrUnavailable)
	}

	var resp struct {
		Data struct {
			Base     string `json:"base"`
			Currency string `json:"currency"`
			Amount   string `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("price decode failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return domain.Quote{}, fmt.Errorf("coinbase: decode price %s: %w", symbol, domain.ErrUnavailable)
	}

	price, err := decimal.NewFromString(resp.Data.Amount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("coinbase: parse price %q: %w", resp.Data.Amount, domain.ErrUnavailable)
	}

	return domain.Quote{
		Exchange:  Name,
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}, nil
}

// PlaceMarketOrder submits a market trade. The request is signed with
// HMAC-SHA256 over timestamp+method+path+body and authenticated via the
// CB-ACCESS-* headers. The order is attempted exactly once.
func (c *Client) PlaceMarketOrder(ctx context.Context, creds domain.Credentials, symbol string, side domain.OrderSide, quantity float64) domain.TradeResult {
	reqBody, err := json.Marshal(map[string]string{
		"product_id": ProductID(symbol),
		"side":       string(side),
		"funds":      strconv.FormatFloat(quantity, 'f', -1, 64),
	})
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("coinbase: marshal order: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tradePath, bytes.NewReader(reqBody))
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("coinbase: create order request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range crypto.CoinbaseHeaders(creds.APIKey, creds.APISecret, http.MethodPost, tradePath, string(reqBody)) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("coinbase: order request: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("coinbase: read order response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := strings.TrimSpace(string(body))
		if len(apiErr.Errors) > 0 {
			msg = apiErr.Errors[0].Message
		}
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("coinbase: order rejected (HTTP %d): %s", resp.StatusCode, msg)}
	}

	var order struct {
		Data struct {
			ID    string `json:"id"`
			Price string `json:"price"`
			Size  string `json:"size"`
			Funds string `json:"funds"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &order); err != nil {
		return domain.TradeResult{Success: false, Error: fmt.Sprintf("coinbase: decode order response: %v", err)}
	}

	return domain.TradeResult{
		Success: true,
		OrderID: order.Data.ID,
		Fill: &domain.Fill{
			Price:    parseFloat(order.Data.Price),
			Quantity: parseFloat(order.Data.Size),
			Total:    parseFloat(order.Data.Funds),
		},
	}
}

// CheckStatus probes the public currencies endpoint. Display only.
func (c *Client) CheckStatus(ctx context.Context) bool {
	_, err := c.getWithRetry(ctx, c.baseURL+"/v2/currencies")
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

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

var _ domain.ExchangeConnector = (*Client)(nil)
