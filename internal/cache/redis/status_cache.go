package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmelo/crossarb/internal/domain"
)

const statusKey = "exchange:status"

// StatusCache implements domain.StatusCache with a single Redis hash mapping
// exchange name to its last probe result.
type StatusCache struct {
	rdb *redis.Client
}

// NewStatusCache creates a StatusCache backed by the given Client.
func NewStatusCache(c *Client) *StatusCache {
	return &StatusCache{rdb: c.Underlying()}
}

// SetStatus records the result of a reachability probe.
func (sc *StatusCache) SetStatus(ctx context.Context, exchange string, up bool, at time.Time) error {
	fields := map[string]interface{}{
		exchange:             strconv.FormatBool(up),
		exchange + ":probed": strconv.FormatInt(at.UnixMilli(), 10),
	}
	if err := sc.rdb.HSet(ctx, statusKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set status %s: %w", exchange, err)
	}
	return nil
}

// GetStatuses returns the last probe result per exchange.
func (sc *StatusCache) GetStatuses(ctx context.Context) (map[string]bool, error) {
	vals, err := sc.rdb.HGetAll(ctx, statusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get statuses: %w", err)
	}

	return parseStatusFields(vals), nil
}

// parseStatusFields filters the probe-timestamp fields out of the status hash
// and parses the remaining per-exchange booleans. Unparseable values are
// skipped.
func parseStatusFields(vals map[string]string) map[string]bool {
	out := make(map[string]bool, len(vals))
	for field, v := range vals {
		if strings.HasSuffix(field, ":probed") {
			continue
		}
		up, err := strconv.ParseBool(v)
		if err != nil {
			continue
		}
		out[field] = up
	}
	return out
}

var _ domain.StatusCache = (*StatusCache)(nil)
