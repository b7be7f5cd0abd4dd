package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// StatusService defines the methods that the status handler requires.
type StatusService interface {
	Statuses(ctx context.Context) (map[string]bool, error)
}

// StatusHandler serves the service mode and per-exchange reachability.
type StatusHandler struct {
	mode     string
	statuses StatusService
	logger   *slog.Logger
}

// NewStatusHandler creates a StatusHandler for the given run mode.
func NewStatusHandler(mode string, statuses StatusService, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{mode: mode, statuses: statuses, logger: logHandler(logger, "status")}
}

// GetStatus responds with the run mode and the last probe result per exchange.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.Statuses(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get statuses failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get exchange status")
		return
	}
	if statuses == nil {
		statuses = map[string]bool{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      h.mode,
		"exchanges": statuses,
	})
}
