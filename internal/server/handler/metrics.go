package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/okquant/costsim/internal/domain"
)

// MetricsHandler serves the latest estimate and recent history.
type MetricsHandler struct {
	exchange string
	symbol   string
	cache    domain.MetricsCache
	store    domain.EstimateStore // nil in monitor mode
	logger   *slog.Logger
}

// NewMetricsHandler creates a MetricsHandler. store may be nil when no
// database is configured; the history endpoint then returns 404.
func NewMetricsHandler(exchange, symbol string, cache domain.MetricsCache, store domain.EstimateStore, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		exchange: exchange,
		symbol:   symbol,
		cache:    cache,
		store:    store,
		logger:   logger.With(slog.String("handler", "metrics")),
	}
}

// Latest returns the most recent estimate for the configured pair.
// GET /api/v1/metrics/latest
func (h *MetricsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.cache.GetLatest(r.Context(), h.exchange, h.symbol)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no estimate computed yet")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get latest estimate", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load latest estimate")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// History returns recent persisted estimates, newest first.
// GET /api/v1/estimates?limit=N
func (h *MetricsHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "estimate history not available in this mode")
		return
	}

	recs, err := h.store.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list recent estimates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load estimates")
		return
	}
	if recs == nil {
		recs = []domain.EstimateRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
