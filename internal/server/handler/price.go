package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmelo/crossarb/internal/domain"
)

// PriceService defines the methods that the price handler requires.
type PriceService interface {
	Quotes(ctx context.Context, symbol string) ([]domain.Quote, error)
}

// PriceHandler serves cached per-exchange quotes.
type PriceHandler struct {
	prices PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler with the given service and logger.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logHandler(logger, "prices")}
}

// listQuotesResponse wraps the quote list response.
type listQuotesResponse struct {
	Symbol string         `json:"symbol"`
	Quotes []domain.Quote `json:"quotes"`
}

// ListQuotes returns the latest cached quote from each exchange for a symbol.
// GET /api/prices?symbol=BTCUSDT
func (h *PriceHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}

	quotes, err := h.prices.Quotes(r.Context(), symbol)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list quotes failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}

	if quotes == nil {
		quotes = []domain.Quote{}
	}

	writeJSON(w, http.StatusOK, listQuotesResponse{Symbol: symbol, Quotes: quotes})
}
