package model

import (
	"database/sql"
	"errors"
	"time"
)

// LedgerRecord is a row in the ledgers table: the serialized ledger JSON
// for one profile key.
type LedgerRecord struct {
	ProfileKey string
	Data       string
	UpdatedAt  time.Time
}

// ErrRecordNotFound is returned when no ledger row exists for a profile key.
var ErrRecordNotFound = errors.New("ledger record not found")

// GetLedgerRecord retrieves the serialized ledger for the given profile key.
func GetLedgerRecord(db *sql.DB, profileKey string) (*LedgerRecord, error) {
	record := &LedgerRecord{}
	err := db.QueryRow(
		`SELECT profile_key, data, updated_at FROM ledgers WHERE profile_key = ?`,
		profileKey,
	).Scan(&record.ProfileKey, &record.Data, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// PutLedgerRecord inserts or replaces the serialized ledger for a profile key.
func PutLedgerRecord(db *sql.DB, profileKey, data string) error {
	_, err := db.Exec(`
		INSERT INTO ledgers (profile_key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(profile_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		profileKey, data, time.Now(),
	)
	return err
}
