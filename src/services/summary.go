package services

import (
	"math"

	"github.com/username/gramstracker/backend/src/models"
)

// ComputeBillingSummary derives the billing totals from a ledger snapshot.
// Sales and trades both count toward grams moved; a stock addition with no
// recorded cost contributes zero. Totals are rounded to cents here, at the
// read boundary only — the ledger itself keeps raw float values.
func ComputeBillingSummary(ledger *models.StockLedger) models.BillingSummary {
	var revenue, grams, cost float64
	for _, tx := range ledger.History {
		revenue += tx.Total
		grams += tx.Grams
	}
	for _, addition := range ledger.StockAdditions {
		if addition.Cost != nil {
			cost += *addition.Cost
		}
	}
	return models.BillingSummary{
		TotalRevenue:         roundCents(revenue),
		TotalGramsMoved:      grams,
		TotalAcquisitionCost: roundCents(cost),
		Stock:                ledger.Stock,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
