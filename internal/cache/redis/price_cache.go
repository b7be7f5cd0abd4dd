package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/dmelo/crossarb/internal/domain"
)

// quoteTTL bounds how long a cached quote stays visible. Quotes are
// refreshed every poll cycle; anything older than this is stale display
// state, not a usable price.
const quoteTTL = 5 * time.Minute

// PriceCache implements domain.PriceCache using one Redis hash per exchange
// and symbol, keyed "quote:{exchange}:{symbol}" with fields "price" and "ts"
// (Unix millisecond timestamp).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func quoteKey(exchange, symbol string) string {
	return "quote:" + exchange + ":" + symbol
}

// SetQuote stores the latest quote for its exchange and symbol.
func (pc *PriceCache) SetQuote(ctx context.Context, q domain.Quote) error {
	key := quoteKey(q.Exchange, q.Symbol)
	fields := map[string]interface{}{
		"price": q.Price.String(),
		"ts":    strconv.FormatInt(q.Timestamp.UnixMilli(), 10),
	}
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s %s: %w", q.Exchange, q.Symbol, err)
	}
	return nil
}

// GetQuotes returns the cached quotes for symbol on the given exchanges.
// Exchanges with no cached quote are silently omitted.
func (pc *PriceCache) GetQuotes(ctx context.Context, symbol string, exchanges []string) ([]domain.Quote, error) {
	if len(exchanges) == 0 {
		return nil, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(exchanges))
	for _, ex := range exchanges {
		cmds[ex] = pipe.HGetAll(ctx, quoteKey(ex, symbol))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: get quotes %s: %w", symbol, err)
	}

	quotes := make([]domain.Quote, 0, len(exchanges))
	for _, ex := range exchanges {
		vals, err := cmds[ex].Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		price, err := decimal.NewFromString(vals["price"])
		if err != nil {
			continue
		}
		tsMilli, err := strconv.ParseInt(vals["ts"], 10, 64)
		if err != nil {
			continue
		}
		quotes = append(quotes, domain.Quote{
			Exchange:  ex,
			Symbol:    symbol,
			Price:     price,
			Timestamp: time.UnixMilli(tsMilli).UTC(),
		})
	}

	return quotes, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
