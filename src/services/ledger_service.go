package services

import (
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/models"
	"github.com/username/gramstracker/backend/src/storage"
)

// ledgerKeyPrefix namespaces ledger records in the persistence keyspace.
const ledgerKeyPrefix = "gramstracker_data_"

type ledgerService struct {
	mu                  sync.Mutex
	adapter             storage.PersistenceAdapter
	defaultPricePerGram float64

	// ledgers holds the authoritative in-memory state per profile key;
	// the persisted record is a best-effort mirror of it.
	ledgers map[string]*models.StockLedger
}

// NewLedgerService builds the ledger service backed by the given adapter.
func NewLedgerService(adapter storage.PersistenceAdapter, defaultPricePerGram float64) LedgerService {
	return &ledgerService{
		adapter:             adapter,
		defaultPricePerGram: defaultPricePerGram,
		ledgers:             make(map[string]*models.StockLedger),
	}
}

func (s *ledgerService) Activate(profileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerFor(profileKey)
	return nil
}

func (s *ledgerService) Deactivate(profileKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ledgers, profileKey)
}

// ledgerFor returns the in-memory ledger for a profile, loading it from the
// adapter on first access. An absent or undecodable record becomes a fresh
// default ledger; load problems never surface to the caller.
func (s *ledgerService) ledgerFor(profileKey string) *models.StockLedger {
	if ledger, ok := s.ledgers[profileKey]; ok {
		return ledger
	}

	ledger := models.NewStockLedger(s.defaultPricePerGram)
	raw, found, err := s.adapter.Get(ledgerKeyPrefix + profileKey)
	if err != nil {
		logger.L.Warn("Failed to read ledger record, starting from defaults", "profileKey", profileKey, "error", err)
	} else if found {
		if err := json.Unmarshal([]byte(raw), ledger); err != nil {
			logger.L.Warn("Stored ledger record is not decodable, starting from defaults", "profileKey", profileKey, "error", err)
			ledger = models.NewStockLedger(s.defaultPricePerGram)
		}
	}
	ledger.Normalize()

	s.ledgers[profileKey] = ledger
	return ledger
}

// persist mirrors the in-memory ledger to the adapter. Write failures are
// downgraded to a warning: the mutation has already committed in memory.
func (s *ledgerService) persist(profileKey string, ledger *models.StockLedger) {
	data, err := json.Marshal(ledger)
	if err != nil {
		logger.L.Warn("Failed to serialize ledger", "profileKey", profileKey, "error", err)
		return
	}
	if err := s.adapter.Set(ledgerKeyPrefix+profileKey, string(data)); err != nil {
		logger.L.Warn("Failed to persist ledger", "profileKey", profileKey, "error", err)
	}
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func (s *ledgerService) AddStock(profileKey string, grams float64, cost *float64) (*models.StockAddition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !positiveFinite(grams) {
		return nil, ErrInvalidAmount
	}

	ledger := s.ledgerFor(profileKey)
	addition := models.StockAddition{
		ID:    uuid.New().String(),
		Grams: grams,
		Cost:  cost,
		Date:  time.Now().UTC(),
	}
	ledger.Stock += grams
	ledger.StockAdditions = append([]models.StockAddition{addition}, ledger.StockAdditions...)
	s.persist(profileKey, ledger)
	return &addition, nil
}

func (s *ledgerService) Sell(profileKey string, grams float64, method models.PaymentMethod) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sellLocked(profileKey, grams, method)
}

func (s *ledgerService) sellLocked(profileKey string, grams float64, method models.PaymentMethod) (*models.Transaction, error) {
	ledger := s.ledgerFor(profileKey)
	if ledger.PricePerGram <= 0 {
		return nil, ErrPriceNotSet
	}
	if !models.IsSalePaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}

	tx := models.Transaction{
		ID:            uuid.New().String(),
		Type:          models.TransactionTypeSale,
		Grams:         grams,
		PricePerGram:  ledger.PricePerGram,
		Total:         grams * ledger.PricePerGram,
		Date:          time.Now().UTC(),
		PaymentMethod: method,
	}
	if err := recordTransaction(ledger, grams, tx); err != nil {
		return nil, err
	}
	s.persist(profileKey, ledger)
	return &tx, nil
}

func (s *ledgerService) SellByMoney(profileKey string, amount float64, method models.PaymentMethod) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgerFor(profileKey)
	if ledger.PricePerGram <= 0 {
		return nil, ErrPriceNotSet
	}
	if !positiveFinite(amount) {
		return nil, ErrInvalidAmount
	}
	return s.sellLocked(profileKey, amount/ledger.PricePerGram, method)
}

func (s *ledgerService) Trade(profileKey string, grams float64, description string, value *float64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(description) == "" {
		return nil, ErrMissingDescription
	}

	ledger := s.ledgerFor(profileKey)
	total := 0.0
	if value != nil {
		total = *value
	}
	tx := models.Transaction{
		ID:               uuid.New().String(),
		Type:             models.TransactionTypeTrade,
		Grams:            grams,
		PricePerGram:     0,
		Total:            total,
		Date:             time.Now().UTC(),
		PaymentMethod:    models.PaymentBarter,
		TradeDescription: description,
		TradeValue:       value,
	}
	if err := recordTransaction(ledger, grams, tx); err != nil {
		return nil, err
	}
	s.persist(profileKey, ledger)
	return &tx, nil
}

// recordTransaction applies the shared sell/trade mutation: amount and
// stock-sufficiency checks, stock decrement, newest-first history prepend,
// and the single-level undo pointer.
func recordTransaction(ledger *models.StockLedger, grams float64, tx models.Transaction) error {
	if !positiveFinite(grams) {
		return ErrInvalidAmount
	}
	if grams > ledger.Stock {
		return ErrInsufficientStock
	}
	ledger.Stock -= grams
	ledger.History = append([]models.Transaction{tx}, ledger.History...)
	ledger.LastTransaction = &tx
	return nil
}

func (s *ledgerService) UndoLastTransaction(profileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgerFor(profileKey)
	last := ledger.LastTransaction
	if last == nil {
		return ErrNoTransactionToUndo
	}

	// Remove by id rather than popping the head, in case the history was
	// reordered by an older record.
	remaining := make([]models.Transaction, 0, len(ledger.History))
	for _, tx := range ledger.History {
		if tx.ID != last.ID {
			remaining = append(remaining, tx)
		}
	}
	ledger.History = remaining
	ledger.Stock += last.Grams
	if len(remaining) > 0 {
		head := remaining[0]
		ledger.LastTransaction = &head
	} else {
		ledger.LastTransaction = nil
	}
	s.persist(profileKey, ledger)
	return nil
}

func (s *ledgerService) SetPricePerGram(profileKey string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return ErrInvalidPrice
	}

	ledger := s.ledgerFor(profileKey)
	ledger.PricePerGram = price
	s.persist(profileKey, ledger)
	return nil
}

func (s *ledgerService) ClearHistory(profileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgerFor(profileKey)
	ledger.History = []models.Transaction{}
	s.persist(profileKey, ledger)
	return nil
}

func (s *ledgerService) WipeHistory(profileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgerFor(profileKey)
	ledger.History = []models.Transaction{}
	ledger.LastTransaction = nil
	s.persist(profileKey, ledger)
	return nil
}

func (s *ledgerService) Snapshot(profileKey string) (*models.StockLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgerFor(profileKey).Clone(), nil
}

func (s *ledgerService) Summary(profileKey string) (models.BillingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeBillingSummary(s.ledgerFor(profileKey)), nil
}
