package models

import "time"

// TransactionType distinguishes the two kinds of outbound stock events.
type TransactionType string

const (
	TransactionTypeSale  TransactionType = "sale"
	TransactionTypeTrade TransactionType = "trade"
)

// PaymentMethod is the closed set of accepted settlement forms.
// Trades always carry PaymentBarter.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "dinheiro"
	PaymentInstant PaymentMethod = "pix"
	PaymentBarter  PaymentMethod = "troca"
)

// SalePaymentMethods lists the methods a sale may be settled with.
var SalePaymentMethods = []PaymentMethod{PaymentCash, PaymentInstant}

// IsSalePaymentMethod reports whether m is valid for a sale.
func IsSalePaymentMethod(m PaymentMethod) bool {
	for _, v := range SalePaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// Transaction is one outbound stock event (sale or trade). Immutable once
// recorded; PricePerGram is the rate in effect at creation time, 0 for trades.
type Transaction struct {
	ID               string          `json:"id"`
	Type             TransactionType `json:"type"`
	Grams            float64         `json:"grams"`
	PricePerGram     float64         `json:"pricePerGram"`
	Total            float64         `json:"total"`
	Date             time.Time       `json:"date"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	TradeDescription string          `json:"tradeDescription,omitempty"`
	TradeValue       *float64        `json:"tradeValue,omitempty"`
}

// StockAddition is one inbound inventory event. It never appears in the
// transaction history; it only feeds acquisition-cost reporting.
type StockAddition struct {
	ID    string    `json:"id"`
	Grams float64   `json:"grams"`
	Cost  *float64  `json:"cost,omitempty"`
	Date  time.Time `json:"date"`
}

// StockLedger is the persisted record for one profile: current stock and
// price, the transaction history and stock-addition log (both newest first),
// and the single undoable transaction.
type StockLedger struct {
	Stock           float64         `json:"stock"`
	PricePerGram    float64         `json:"pricePerGram"`
	History         []Transaction   `json:"history"`
	StockAdditions  []StockAddition `json:"stockAdditions"`
	LastTransaction *Transaction    `json:"lastTransaction,omitempty"`
}

// NewStockLedger returns the default ledger a profile starts with.
func NewStockLedger(defaultPricePerGram float64) *StockLedger {
	return &StockLedger{
		Stock:          0,
		PricePerGram:   defaultPricePerGram,
		History:        []Transaction{},
		StockAdditions: []StockAddition{},
	}
}

// Normalize repairs fields that older records may lack, so that a record
// written before stockAdditions existed still loads.
func (l *StockLedger) Normalize() {
	if l.History == nil {
		l.History = []Transaction{}
	}
	if l.StockAdditions == nil {
		l.StockAdditions = []StockAddition{}
	}
}

// Clone returns a deep copy, safe to hand to readers while the original
// keeps being mutated by the engine.
func (l *StockLedger) Clone() *StockLedger {
	out := &StockLedger{
		Stock:          l.Stock,
		PricePerGram:   l.PricePerGram,
		History:        make([]Transaction, len(l.History)),
		StockAdditions: make([]StockAddition, len(l.StockAdditions)),
	}
	copy(out.History, l.History)
	copy(out.StockAdditions, l.StockAdditions)
	if l.LastTransaction != nil {
		last := *l.LastTransaction
		out.LastTransaction = &last
	}
	return out
}

// BillingSummary is derived from a ledger snapshot on every read; it is
// never persisted.
type BillingSummary struct {
	TotalRevenue         float64 `json:"totalRevenue"`
	TotalGramsMoved      float64 `json:"totalGramsMoved"`
	TotalAcquisitionCost float64 `json:"totalAcquisitionCost"`
	Stock                float64 `json:"stock"`
}
