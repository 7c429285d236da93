package handler

import (
	"log/slog"
	"net/http"
)

// LedgerSource exposes the simulation ledger. The estimation engine
// implements it.
type LedgerSource interface {
	Capital() float64
	Position() float64
	PnL() float64
}

// LedgerHandler serves the simulated capital, position and PnL.
type LedgerHandler struct {
	ledger LedgerSource
	logger *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler with the provided ledger source.
func NewLedgerHandler(ledger LedgerSource, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger.With(slog.String("handler", "ledger")),
	}
}

// Get returns the current ledger snapshot.
// GET /api/v1/ledger
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{
		"capital":  h.ledger.Capital(),
		"position": h.ledger.Position(),
		"pnl":      h.ledger.PnL(),
	})
}
