// Package storage defines the key-value persistence contract the ledger
// service writes through, plus its SQLite and in-memory implementations.
package storage

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/username/gramstracker/backend/src/model"
)

// PersistenceAdapter is a synchronous string key-value store holding one
// serialized record per profile key.
type PersistenceAdapter interface {
	// Get returns the stored value for key, reporting false when absent.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
}

// SQLiteAdapter persists records in the ledgers table.
type SQLiteAdapter struct {
	db *sql.DB
}

func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{db: db}
}

func (a *SQLiteAdapter) Get(key string) (string, bool, error) {
	record, err := model.GetLedgerRecord(a.db, key)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Data, true, nil
}

func (a *SQLiteAdapter) Set(key, value string) error {
	return model.PutLedgerRecord(a.db, key, value)
}

// MemoryAdapter is an in-process adapter used in tests. SetErr, when
// non-nil, is returned by every Set so write-failure handling can be
// exercised without a database.
type MemoryAdapter struct {
	mu      sync.Mutex
	records map[string]string

	SetErr error
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string]string)}
}

func (a *MemoryAdapter) Get(key string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	value, ok := a.records[key]
	return value, ok, nil
}

func (a *MemoryAdapter) Set(key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.SetErr != nil {
		return a.SetErr
	}
	a.records[key] = value
	return nil
}
