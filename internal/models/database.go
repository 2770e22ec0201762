package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding denylist entries and page cursors
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Denylist operations

func denylistKey(recordID int64) string {
	return strconv.FormatInt(recordID, 10)
}

// GetDenylistEntry retrieves the denylist entry for a record, or nil if absent
func (db *Database) GetDenylistEntry(recordID int64) (*DenylistEntry, error) {
	var entry DenylistEntry
	err := db.store.Get(denylistKey(recordID), &entry)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// IsDenylisted reports whether a record has failed at least maxFailures times
func (db *Database) IsDenylisted(recordID int64, maxFailures int) (bool, error) {
	entry, err := db.GetDenylistEntry(recordID)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Failures >= maxFailures, nil
}

// RecordSearchFailure increments the failure counter for a record, creating
// the entry on first failure. The original record id and title are preserved
// on increment.
func (db *Database) RecordSearchFailure(recordID int64, title string) error {
	entry, err := db.GetDenylistEntry(recordID)
	if err != nil {
		return err
	}

	if entry == nil {
		entry = &DenylistEntry{
			RecordID:    recordID,
			RecordTitle: title,
			Failures:    1,
			LastAttempt: time.Now(),
		}
	} else {
		entry.Failures++
		entry.LastAttempt = time.Now()
	}

	return db.store.Upsert(denylistKey(recordID), entry)
}

// ClearSearchFailures removes a record's denylist entry after a successful grab
func (db *Database) ClearSearchFailures(recordID int64) error {
	err := db.store.Delete(denylistKey(recordID), &DenylistEntry{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil
	}
	return err
}

// DenylistEntries returns every denylist entry, for the status endpoint
func (db *Database) DenylistEntries() ([]DenylistEntry, error) {
	var entries []DenylistEntry
	if err := db.store.Find(&entries, nil); err != nil {
		return nil, err
	}
	return entries, nil
}

// Page cursor operations

// GetCurrentPage retrieves the next wanted-list page for a source type,
// defaulting to the first page
func (db *Database) GetCurrentPage(source string) (int, error) {
	var cursor PageCursor
	err := db.store.Get(source, &cursor)
	if errors.Is(err, bolthold.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor.Page, nil
}

// SetCurrentPage stores the next wanted-list page for a source type
func (db *Database) SetCurrentPage(source string, page int) error {
	return db.store.Upsert(source, &PageCursor{Source: source, Page: page})
}
