package services

import "github.com/username/gramstracker/backend/src/models"

// LedgerService owns the in-memory stock ledgers and is the only mutation
// path for them. Every mutating call persists the resulting ledger state
// through the persistence adapter exactly once; a failed write is logged
// and swallowed, since the in-memory state has already committed.
type LedgerService interface {
	// Activate loads the ledger for a profile key, creating defaults when
	// no record exists or the stored record cannot be decoded.
	Activate(profileKey string) error
	// Deactivate drops the in-memory ledger for a profile key.
	Deactivate(profileKey string)

	AddStock(profileKey string, grams float64, cost *float64) (*models.StockAddition, error)
	Sell(profileKey string, grams float64, method models.PaymentMethod) (*models.Transaction, error)
	SellByMoney(profileKey string, amount float64, method models.PaymentMethod) (*models.Transaction, error)
	Trade(profileKey string, grams float64, description string, value *float64) (*models.Transaction, error)
	UndoLastTransaction(profileKey string) error
	SetPricePerGram(profileKey string, price float64) error
	// ClearHistory empties the history; stock and the stock-addition log
	// are untouched.
	ClearHistory(profileKey string) error
	// WipeHistory is the duress path: history is emptied and the undo
	// pointer cleared, silently.
	WipeHistory(profileKey string) error

	// Snapshot returns a deep copy of the ledger for reads.
	Snapshot(profileKey string) (*models.StockLedger, error)
	// Summary computes the billing summary from the current ledger.
	Summary(profileKey string) (models.BillingSummary, error)
}

// HistoryGate guards read access to the transaction history and billing
// summary with its own PIN, independent of the unlock credential.
type HistoryGate interface {
	// Authorize grants history access when pin matches the viewing PIN.
	// The duress PIN also grants access but silently wipes the history
	// first; its response is indistinguishable from a normal success.
	Authorize(profileKey, pin string) (bool, error)
	// Deauthorize revokes history access for a profile, so the next view
	// re-prompts.
	Deauthorize(profileKey string)
	// IsAuthorized reports whether a profile's viewing session is live.
	IsAuthorized(profileKey string) bool
}
