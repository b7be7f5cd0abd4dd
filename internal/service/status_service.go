package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dmelo/crossarb/internal/domain"
)

// StatusService probes exchange reachability and records the results for
// display. Probes never touch the trading path.
type StatusService struct {
	connectors []domain.ExchangeConnector
	statuses   domain.StatusCache
	bus        domain.SignalBus
	logger     *slog.Logger
}

// NewStatusService creates a StatusService. statuses and bus may be nil.
func NewStatusService(
	connectors []domain.ExchangeConnector,
	statuses domain.StatusCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StatusService {
	return &StatusService{
		connectors: connectors,
		statuses:   statuses,
		bus:        bus,
		logger:     logger.With(slog.String("component", "status_service")),
	}
}

// ProbeAll checks every connector and records the result. It returns the
// probe results keyed by exchange name.
func (s *StatusService) ProbeAll(ctx context.Context) map[string]bool {
	now := time.Now().UTC()
	out := make(map[string]bool, len(s.connectors))

	for _, conn := range s.connectors {
		up := conn.CheckStatus(ctx)
		out[conn.Name()] = up

		if !up {
			s.logger.Warn("exchange unreachable", slog.String("exchange", conn.Name()))
		}

		if s.statuses != nil {
			if err := s.statuses.SetStatus(ctx, conn.Name(), up, now); err != nil {
				s.logger.Warn("status cache write failed",
					slog.String("exchange", conn.Name()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":    "status",
			"statuses": out,
			"probed":   now.Format(time.RFC3339),
		})
		if err := s.bus.Publish(ctx, "status", evt); err != nil {
			s.logger.Warn("status publish failed", slog.String("error", err.Error()))
		}
	}

	return out
}

// Statuses returns the last recorded probe results for the API layer.
func (s *StatusService) Statuses(ctx context.Context) (map[string]bool, error) {
	if s.statuses == nil {
		return nil, nil
	}
	return s.statuses.GetStatuses(ctx)
}
