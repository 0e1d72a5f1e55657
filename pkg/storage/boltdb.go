package storage

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketResults = []byte("results")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the journal database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketResults); err != nil {
			return errors.Wrapf(err, "failed to create bucket %s", bucketResults)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Record saves a task result. UUIDv7 ids sort by creation time.
func (s *BoltStore) Record(entry *Entry) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "failed to generate entry id")
		}
		entry.ID = id.String()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.ID), data)
	})
}

func (s *BoltStore) GetEntry(id string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		data := b.Get([]byte(id))
		if data == nil {
			return errors.Errorf("journal entry not found: %s", id)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BoltStore) List(limit int) ([]*Entry, error) {
	return s.list(limit, func(*Entry) bool { return true })
}

func (s *BoltStore) ListByModule(module string, limit int) ([]*Entry, error) {
	return s.list(limit, func(e *Entry) bool { return e.Module == module })
}

func (s *BoltStore) list(limit int, keep func(*Entry) bool) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketResults).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return errors.Wrapf(err, "corrupt journal entry %s", k)
			}
			if !keep(&entry) {
				continue
			}
			entries = append(entries, &entry)
			if limit > 0 && len(entries) == limit {
				return nil
			}
		}
		return nil
	})
	return entries, err
}

func (s *BoltStore) Prune(keep int) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		var stale [][]byte
		seen := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
