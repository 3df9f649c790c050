package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The persisted record layout is load-bearing: older app versions wrote
// this exact shape, so field names must stay stable.
func TestStockLedgerPersistedLayout(t *testing.T) {
	value := 25.0
	ledger := &StockLedger{
		Stock:        750,
		PricePerGram: 0.2,
		History: []Transaction{{
			ID:               "tx-1",
			Type:             TransactionTypeTrade,
			Grams:            100,
			Total:            25,
			Date:             time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC),
			PaymentMethod:    PaymentBarter,
			TradeDescription: "relógio",
			TradeValue:       &value,
		}},
		StockAdditions: []StockAddition{},
	}

	data, err := json.Marshal(ledger)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "stock")
	assert.Contains(t, decoded, "pricePerGram")
	assert.Contains(t, decoded, "history")
	assert.Contains(t, decoded, "stockAdditions")
	assert.NotContains(t, decoded, "lastTransaction", "absent pointer must be omitted")

	entry := decoded["history"].([]any)[0].(map[string]any)
	assert.Equal(t, "trade", entry["type"])
	assert.Equal(t, "troca", entry["paymentMethod"])
	assert.Equal(t, "2025-03-09T10:00:00Z", entry["date"])
	assert.Equal(t, 25.0, entry["tradeValue"])
}

func TestNormalizeRepairsNilCollections(t *testing.T) {
	var ledger StockLedger
	require.NoError(t, json.Unmarshal([]byte(`{"stock": 5, "pricePerGram": 1}`), &ledger))

	ledger.Normalize()
	assert.NotNil(t, ledger.History)
	assert.NotNil(t, ledger.StockAdditions)
}

func TestCloneIsDeep(t *testing.T) {
	ledger := NewStockLedger(0.10)
	ledger.History = []Transaction{{ID: "tx-1", Grams: 10}}
	tx := ledger.History[0]
	ledger.LastTransaction = &tx

	clone := ledger.Clone()
	clone.Stock = 99
	clone.History[0].Grams = 1
	clone.LastTransaction.ID = "changed"

	assert.Equal(t, 0.0, ledger.Stock)
	assert.Equal(t, 10.0, ledger.History[0].Grams)
	assert.Equal(t, "tx-1", ledger.LastTransaction.ID)
}

func TestIsSalePaymentMethod(t *testing.T) {
	assert.True(t, IsSalePaymentMethod(PaymentCash))
	assert.True(t, IsSalePaymentMethod(PaymentInstant))
	assert.False(t, IsSalePaymentMethod(PaymentBarter))
	assert.False(t, IsSalePaymentMethod(PaymentMethod("cartão")))
}
