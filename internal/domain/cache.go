package domain

import (
	"context"
	"time"
)

// PriceCache stores the latest quote per exchange and symbol for display.
type PriceCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuotes(ctx context.Context, symbol string, exchanges []string) ([]Quote, error)
}

// OpportunityCache keeps recently detected opportunities available for the
// UI and for trade execution lookups. Entries expire; this is display state,
// not historical persistence.
type OpportunityCache interface {
	Put(ctx context.Context, opp Opportunity) error
	Get(ctx context.Context, id string) (Opportunity, error)
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
}

// StatusCache records each exchange's last reachability probe result.
type StatusCache interface {
	SetStatus(ctx context.Context, exchange string, up bool, at time.Time) error
	GetStatuses(ctx context.Context) (map[string]bool, error)
}

// SignalBus provides pub/sub fan-out of quote, opportunity, and trade events
// to interested consumers (the WebSocket hub in particular).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan []byte, error)
}
