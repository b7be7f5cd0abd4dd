package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmelo/crossarb/internal/domain"
)

// TradeService defines the methods that the trade handler requires.
type TradeService interface {
	ExecuteTrade(ctx context.Context, opportunityID string, quantity float64) (domain.TradeOutcome, error)
}

// TradeHandler serves the trade execution endpoint.
type TradeHandler struct {
	trades TradeService
	// defaultQuantity is used when the request omits a quantity.
	defaultQuantity float64
	logger          *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, defaultQuantity float64, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, defaultQuantity: defaultQuantity, logger: logHandler(logger, "trade")}
}

// executeTradeRequest is the JSON body for POST /api/trade.
type executeTradeRequest struct {
	OpportunityID string  `json:"opportunity_id"`
	Quantity      float64 `json:"quantity"`
}

// ExecuteTrade runs the paired buy/sell for a previously detected opportunity.
// The outcome is returned even when one or both legs fail; HTTP errors are
// reserved for malformed requests and expired opportunities.
// POST /api/trade
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OpportunityID == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity_id")
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = h.defaultQuantity
	}
	if quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	outcome, err := h.trades.ExecuteTrade(r.Context(), req.OpportunityID, quantity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found or expired")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: execute trade failed",
			slog.String("opportunity_id", req.OpportunityID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to execute trade")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
