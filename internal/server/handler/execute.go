package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/okquant/costsim/internal/domain"
)

// Executor runs one simulated fill against the ledger. The estimation
// engine implements it.
type Executor interface {
	Execute(orderSize, limitPrice float64, orderType string, horizon float64) domain.TradeResult
}

// ExecuteHandler serves simulated trade execution and history.
type ExecuteHandler struct {
	executor Executor
	store    domain.SimTradeStore // nil in monitor mode
	logger   *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler. store may be nil; executed
// trades are then not persisted and the history endpoint returns 404.
func NewExecuteHandler(executor Executor, store domain.SimTradeStore, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		executor: executor,
		store:    store,
		logger:   logger.With(slog.String("handler", "execute")),
	}
}

type executeRequest struct {
	OrderSize  float64 `json:"order_size"`
	LimitPrice float64 `json:"limit_price"`
	OrderType  string  `json:"order_type"`
	Horizon    float64 `json:"horizon_sec"`
}

// Execute runs one simulated fill and applies it to the ledger.
// POST /api/v1/execute
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderSize == 0 {
		writeError(w, http.StatusBadRequest, "order_size must not be zero")
		return
	}
	if req.LimitPrice <= 0 {
		writeError(w, http.StatusBadRequest, "limit_price must be positive")
		return
	}
	if req.OrderType != "market" && req.OrderType != "limit" {
		writeError(w, http.StatusBadRequest, `order_type must be "market" or "limit"`)
		return
	}

	res := h.executor.Execute(req.OrderSize, req.LimitPrice, req.OrderType, req.Horizon)

	if h.store != nil {
		if err := h.store.Insert(r.Context(), res); err != nil {
			h.logger.ErrorContext(r.Context(), "persist sim trade",
				slog.String("id", res.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusCreated, res)
}

// History returns recent simulated trades, newest first.
// GET /api/v1/trades?limit=N
func (h *ExecuteHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "trade history not available in this mode")
		return
	}

	trades, err := h.store.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list recent sim trades", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	if trades == nil {
		trades = []domain.TradeResult{}
	}
	writeJSON(w, http.StatusOK, trades)
}
