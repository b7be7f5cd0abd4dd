package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmelo/crossarb/internal/domain"
)

const (
	// oppTTL is how long a detected opportunity remains addressable for
	// trade execution. Market gaps close quickly; stale entries just fall
	// out of the cache.
	oppTTL = 10 * time.Minute

	// oppRecentMax bounds the recent-opportunities list.
	oppRecentMax = 100

	oppRecentKey = "opps:recent"
)

// OpportunityCache implements domain.OpportunityCache. Each opportunity is
// stored as JSON at "opp:{id}" with a TTL, and its id is pushed onto a
// trimmed recent list. This is display and lookup state only; nothing here
// is historical persistence.
type OpportunityCache struct {
	rdb *redis.Client
}

// NewOpportunityCache creates an OpportunityCache backed by the given Client.
func NewOpportunityCache(c *Client) *OpportunityCache {
	return &OpportunityCache{rdb: c.Underlying()}
}

func oppKey(id string) string {
	return "opp:" + id
}

// Put stores an opportunity and records it as most recent.
func (oc *OpportunityCache) Put(ctx context.Context, opp domain.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity %s: %w", opp.ID, err)
	}

	pipe := oc.rdb.TxPipeline()
	pipe.Set(ctx, oppKey(opp.ID), data, oppTTL)
	pipe.LPush(ctx, oppRecentKey, opp.ID)
	pipe.LTrim(ctx, oppRecentKey, 0, oppRecentMax-1)
	pipe.Expire(ctx, oppRecentKey, oppTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// Get returns the opportunity with the given id, or domain.ErrNotFound when
// it never existed or has expired.
func (oc *OpportunityCache) Get(ctx context.Context, id string) (domain.Opportunity, error) {
	data, err := oc.rdb.Get(ctx, oppKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Opportunity{}, domain.ErrNotFound
		}
		return domain.Opportunity{}, fmt.Errorf("redis: get opportunity %s: %w", id, err)
	}

	var opp domain.Opportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		return domain.Opportunity{}, fmt.Errorf("redis: decode opportunity %s: %w", id, err)
	}
	return opp, nil
}

// ListRecent returns up to limit of the most recently detected opportunities,
// newest first. Expired entries are skipped.
func (oc *OpportunityCache) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 || limit > oppRecentMax {
		limit = oppRecentMax
	}

	ids, err := oc.rdb.LRange(ctx, oppRecentKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list recent opportunities: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = oppKey(id)
	}
	vals, err := oc.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetch recent opportunities: %w", err)
	}

	opps := make([]domain.Opportunity, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var opp domain.Opportunity
		if err := json.Unmarshal([]byte(s), &opp); err != nil {
			continue
		}
		opps = append(opps, opp)
	}
	return opps, nil
}

var _ domain.OpportunityCache = (*OpportunityCache)(nil)
