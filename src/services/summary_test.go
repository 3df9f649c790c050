package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/gramstracker/backend/src/models"
)

func TestComputeBillingSummaryEmptyLedger(t *testing.T) {
	summary := ComputeBillingSummary(models.NewStockLedger(0.10))
	assert.Equal(t, models.BillingSummary{}, summary)
}

func TestComputeBillingSummary(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AddStock(testProfile, 1000, floatPtr(50))
	require.NoError(t, err)
	_, err = svc.AddStock(testProfile, 500, nil) // missing cost counts as zero
	require.NoError(t, err)
	require.NoError(t, svc.SetPricePerGram(testProfile, 0.2))

	_, err = svc.Sell(testProfile, 250, models.PaymentCash)
	require.NoError(t, err)
	_, err = svc.Trade(testProfile, 100, "fone de ouvido", floatPtr(30))
	require.NoError(t, err)

	summary, err := svc.Summary(testProfile)
	require.NoError(t, err)

	// Sales revenue plus declared trade value; both kinds count as moved.
	assert.Equal(t, 80.0, summary.TotalRevenue)
	assert.Equal(t, 350.0, summary.TotalGramsMoved)
	assert.Equal(t, 50.0, summary.TotalAcquisitionCost)
	assert.Equal(t, 1150.0, summary.Stock)
}

func TestComputeBillingSummaryRoundsToCents(t *testing.T) {
	ledger := models.NewStockLedger(0.10)
	ledger.History = []models.Transaction{
		{Total: 0.1, Grams: 1},
		{Total: 0.2, Grams: 1},
	}
	summary := ComputeBillingSummary(ledger)
	// 0.1 + 0.2 accumulates float error; the read boundary rounds it away.
	assert.Equal(t, 0.3, summary.TotalRevenue)
}
