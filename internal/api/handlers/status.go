package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/logger"
)

// IntentReader exposes the pipeline's most recent decision state.
type IntentReader interface {
	LatestIntent() *contracts.Intent
	LatestRegime() contracts.RegimeState
}

// StatusHandler serves read-only pipeline state.
type StatusHandler struct {
	reader IntentReader
	ledger contracts.LedgerStore
	logger *logger.Logger
}

// NewStatusHandler creates the status handler.
func NewStatusHandler(reader IntentReader, ledger contracts.LedgerStore, log *logger.Logger) *StatusHandler {
	return &StatusHandler{reader: reader, ledger: ledger, logger: log}
}

// GetLatestIntent returns the most recent rebalance intent.
func (h *StatusHandler) GetLatestIntent(w http.ResponseWriter, r *http.Request) {
	intent := h.reader.LatestIntent()
	if intent == nil {
		respondError(w, http.StatusNotFound, "no intent produced yet")
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

// GetRegime returns the most recent regime state.
func (h *StatusHandler) GetRegime(w http.ResponseWriter, r *http.Request) {
	state := h.reader.LatestRegime()
	if state.Label == "" {
		respondError(w, http.StatusNotFound, "no regime detected yet")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// GetLedger returns the newest ledger rows; ?limit=N caps the count,
// default 50.
func (h *StatusHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.ledger.Records(r.Context())
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Ledger read failed")
		respondError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}

	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
