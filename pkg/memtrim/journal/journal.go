// Package journal provides Badger-backed storage for recent clean results.
// Only clean operations are recorded here; memory readings are never
// persisted.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/memtrim/pkg/memtrim/release"
)

// Key layout: "c:<unix-nano, zero-padded>" so iteration order is
// chronological.
const entryKeyFormat = "c:%020d"

// Journal stores a bounded history of clean results.
type Journal struct {
	db         *badger.DB
	maxEntries int
}

// Open opens or creates a journal at the given path. maxEntries bounds
// the retained history; older entries are pruned on append.
func Open(path string, maxEntries int) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Journal{db: db, maxEntries: maxEntries}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records a clean result and prunes history beyond maxEntries.
func (j *Journal) Append(result release.CleanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	key := []byte(fmt.Sprintf(entryKeyFormat, result.StartedAt.UnixNano()))
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return err
	}

	return j.prune()
}

// Recent returns up to limit results, newest first.
func (j *Journal) Recent(limit int) ([]release.CleanResult, error) {
	var results []release.CleanResult

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the last "c:" key.
		seek := []byte("c;")
		for it.Seek(seek); it.ValidForPrefix([]byte("c:")); it.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			var result release.CleanResult
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &result)
			})
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Count returns the number of stored entries.
func (j *Journal) Count() (int, error) {
	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("c:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// LastSince returns results newer than the cutoff, newest first.
func (j *Journal) LastSince(cutoff time.Time) ([]release.CleanResult, error) {
	all, err := j.Recent(0)
	if err != nil {
		return nil, err
	}

	var results []release.CleanResult
	for _, r := range all {
		if r.StartedAt.Before(cutoff) {
			break
		}
		results = append(results, r)
	}
	return results, nil
}

// prune drops the oldest entries beyond maxEntries.
func (j *Journal) prune() error {
	if j.maxEntries <= 0 {
		return nil
	}

	count, err := j.Count()
	if err != nil {
		return err
	}
	excess := count - j.maxEntries
	if excess <= 0 {
		return nil
	}

	return j.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("c:")
		removed := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix) && removed < excess; it.Next() {
			key := it.Item().KeyCopy(nil)
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
}
