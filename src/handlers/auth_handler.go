package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/security"
	"github.com/username/gramstracker/backend/src/security/validation"
	"github.com/username/gramstracker/backend/src/services"
)

type AuthHandler struct {
	authService *security.AuthService
	ledgers     services.LedgerService
	historyGate services.HistoryGate
}

func NewAuthHandler(authService *security.AuthService, ledgers services.LedgerService, historyGate services.HistoryGate) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		ledgers:     ledgers,
		historyGate: historyGate,
	}
}

func sendJSON(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func sendJSONError(w http.ResponseWriter, message, detail string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	body := map[string]string{"error": message}
	if detail != "" {
		body["detail"] = detail
	}
	json.NewEncoder(w).Encode(body)
}

// sendServiceError maps a ledger-service error onto an HTTP status plus the
// engine's user-facing title/detail pair.
func sendServiceError(w http.ResponseWriter, err error) {
	title, detail := services.UserMessage(err)
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, services.ErrInsufficientStock), errors.Is(err, services.ErrPriceNotSet),
		errors.Is(err, services.ErrNoTransactionToUndo):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrMissingDescription), errors.Is(err, services.ErrInvalidPaymentMethod):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	sendJSONError(w, title, detail, status)
}

// UnlockHandler validates an unlock key against the allow-list. A lockout
// in progress answers 423 with the remaining wait; a rejected key answers
// 401. Success activates the profile's ledger and returns a session token.
func (h *AuthHandler) UnlockHandler(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	req.Key = strings.TrimSpace(validation.StripUnprintable(req.Key))
	if err := validation.ValidateStringMaxLength(req.Key, validation.MaxCredentialLength, "key"); err != nil {
		sendJSONError(w, "Chave de acesso incorreta", "", http.StatusUnauthorized)
		return
	}

	profileKey, token, err := h.authService.Unlock(req.Key)
	if err != nil {
		var lockedOut *security.LockedOutError
		if errors.As(err, &lockedOut) {
			ctxLogger.Warn("Unlock refused, lockout active", "remaining", lockedOut.Remaining)
			sendJSON(w, map[string]any{
				"error":       "Acesso bloqueado",
				"detail":      "Tente novamente em " + lockedOut.Remaining.Round(time.Second).String(),
				"remainingMs": lockedOut.Remaining.Milliseconds(),
			}, http.StatusLocked)
			return
		}
		ctxLogger.Warn("Unlock rejected")
		sendJSONError(w, "Chave de acesso incorreta", "", http.StatusUnauthorized)
		return
	}

	if err := h.ledgers.Activate(string(profileKey)); err != nil {
		ctxLogger.Error("Failed to activate ledger after unlock", "error", err)
		sendJSONError(w, "Erro interno", "Tente novamente.", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Profile unlocked", "profileKey", string(profileKey))
	sendJSON(w, map[string]string{
		"token":      token,
		"profileKey": string(profileKey),
	}, http.StatusOK)
}

// LogoutHandler clears the active profile and ends any history viewing
// session. Idempotent.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	h.authService.Logout()
	h.historyGate.Deauthorize(string(profileKey))
	h.ledgers.Deactivate(string(profileKey))

	logger.FromContext(r.Context()).Info("Profile logged out")
	w.WriteHeader(http.StatusNoContent)
}
