package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmelo/crossarb/internal/domain"
)

// ArbService defines the methods that the arbitrage handler requires.
type ArbService interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error)
}

// ArbHandler serves arbitrage-related HTTP endpoints.
type ArbHandler struct {
	arb    ArbService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler with the given service and logger.
func NewArbHandler(arb ArbService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{arb: arb, logger: logHandler(logger, "arbitrage")}
}

// listOppsResponse wraps the list opportunities response.
type listOppsResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// ListRecent returns the most recent detected opportunities.
// GET /api/opportunities?limit=20
func (h *ArbHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)

	opps, err := h.arb.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}

	writeJSON(w, http.StatusOK, listOppsResponse{Opportunities: opps})
}
