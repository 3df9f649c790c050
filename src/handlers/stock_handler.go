package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/models"
	"github.com/username/gramstracker/backend/src/security/validation"
	"github.com/username/gramstracker/backend/src/services"
)

type StockHandler struct {
	ledgers services.LedgerService
}

func NewStockHandler(ledgers services.LedgerService) *StockHandler {
	return &StockHandler{ledgers: ledgers}
}

// HandleGetStock returns the home-screen view of the ledger: stock, price
// and the undoable transaction. History stays behind the history gate.
func (h *StockHandler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	snapshot, err := h.ledgers.Snapshot(string(profileKey))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, map[string]any{
		"stock":           snapshot.Stock,
		"pricePerGram":    snapshot.PricePerGram,
		"lastTransaction": snapshot.LastTransaction,
	}, http.StatusOK)
}

func (h *StockHandler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	var req struct {
		Grams float64  `json:"grams"`
		Cost  *float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	addition, err := h.ledgers.AddStock(string(profileKey), req.Grams, req.Cost)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Stock added", "grams", addition.Grams)
	sendJSON(w, addition, http.StatusCreated)
}

func (h *StockHandler) HandleSell(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	var req struct {
		Grams         float64 `json:"grams"`
		PaymentMethod string  `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	tx, err := h.ledgers.Sell(string(profileKey), req.Grams, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Sale recorded", "grams", tx.Grams, "total", tx.Total, "paymentMethod", tx.PaymentMethod)
	sendJSON(w, tx, http.StatusCreated)
}

// HandleSellByMoney converts the tendered amount into grams at the current
// price and records a regular sale.
func (h *StockHandler) HandleSellByMoney(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	tx, err := h.ledgers.SellByMoney(string(profileKey), req.Amount, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Sale recorded", "grams", tx.Grams, "total", tx.Total, "paymentMethod", tx.PaymentMethod)
	sendJSON(w, tx, http.StatusCreated)
}

func (h *StockHandler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	var req struct {
		Grams       float64  `json:"grams"`
		Description string   `json:"description"`
		Value       *float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	// The description is stored and served back, so strip markup here.
	req.Description = strings.TrimSpace(validation.SanitizeText(req.Description))
	if err := validation.ValidateStringMaxLength(req.Description, validation.MaxDescriptionLength, "description"); err != nil {
		sendJSONError(w, "Descrição necessária", "A descrição é longa demais.", http.StatusBadRequest)
		return
	}

	tx, err := h.ledgers.Trade(string(profileKey), req.Grams, req.Description, req.Value)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Trade recorded", "grams", tx.Grams, "description", tx.TradeDescription)
	sendJSON(w, tx, http.StatusCreated)
}

func (h *StockHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	if err := h.ledgers.UndoLastTransaction(string(profileKey)); err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Last transaction undone")
	w.WriteHeader(http.StatusNoContent)
}

func (h *StockHandler) HandleSetPrice(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	var req struct {
		PricePerGram float64 `json:"pricePerGram"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", "", http.StatusBadRequest)
		return
	}

	if err := h.ledgers.SetPricePerGram(string(profileKey), req.PricePerGram); err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Price per gram updated", "pricePerGram", req.PricePerGram)
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearHistory is the settings-screen clear: it empties the history
// only, leaving stock and the stock-addition log alone.
func (h *StockHandler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	profileKey, ok := GetProfileKeyFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	if err := h.ledgers.ClearHistory(string(profileKey)); err != nil {
		sendServiceError(w, err)
		return
	}

	logger.FromContext(r.Context()).Info("Transaction history cleared")
	w.WriteHeader(http.StatusNoContent)
}
