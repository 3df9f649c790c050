package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/security/validation"
	"github.com/username/gramstracker/backend/src/services"
)

type HistoryHandler struct {
	ledgers services.LedgerService
	gate    services.HistoryGate
}

func NewHistoryHandler(ledgers services.LedgerService, gate services.HistoryGate) *HistoryHandler {
	return &HistoryHandler{ledgers: ledgers, gate: gate}
}

// HandleAuthorize checks the history PIN and opens a viewing session. The
// duress PIN takes the same success path after silently wiping the history;
// callers cannot tell the two outcomes apart.
func (h *HistoryHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	req.PIN = strings.TrimSpace(validation.StripUnprintable(req.PIN))
	if err := validation.ValidateStringMaxLength(req.PIN, validation.MaxCredentialLength, "pin"); err != nil {
		sendJSONError(w, "Senha incorreta", "", http.StatusUnauthorized)
		return
	}

	authorized, err := h.gate.Authorize(string(profileKey), req.PIN)
	if err != nil {
		logger.FromContext(r.Context()).Error("History authorization failed", "error", err)
		sendJSONError(w, "Erro interno", "Tente novamente.", http.StatusInternalServerError)
		return
	}
	if !authorized {
		sendJSONError(w, "Senha incorreta", "", http.StatusUnauthorized)
		return
	}

	sendJSON(w, map[string]bool{"authorized": true}, http.StatusOK)
}

// HandleDeauthorize ends the viewing session so the next history read
// prompts for the PIN again. Idempotent.
func (h *HistoryHandler) HandleDeauthorize(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	h.gate.Deauthorize(string(profileKey))
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetHistory serves the transaction history and the billing summary,
// but only while a viewing session is open.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	if !h.gate.IsAuthorized(string(profileKey)) {
		sendJSONError(w, "Senha necessária", "Autorize o acesso ao histórico antes de visualizar.", http.StatusForbidden)
		return
	}

	snapshot, err := h.ledgers.Snapshot(string(profileKey))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	summary, err := h.ledgers.Summary(string(profileKey))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, map[string]any{
		"history":        snapshot.History,
		"stockAdditions": snapshot.StockAdditions,
		"summary":        summary,
	}, http.StatusOK)
}
