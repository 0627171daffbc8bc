// Package state persists the tracking agent's session and tab checkpoints in
// a local Badger database so tracking survives agent restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	tabPrefix  = "tab:"
	sessionKey = "auth:session"
)

// sessionMaxAge matches the server's token lifetime; anything older is
// discarded on load.
const sessionMaxAge = 30 * 24 * time.Hour

// ErrNoSession is returned when no valid stored session exists.
var ErrNoSession = errors.New("no stored session")

// TabRecord is the persisted snapshot of one tracked browser tab.
type TabRecord struct {
	ID        int       `json:"id"`
	URL       string    `json:"url"`
	Company   string    `json:"company"`
	Tracking  bool      `json:"tracking"`
	Declined  bool      `json:"declined"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the persisted authentication state.
type Session struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store wraps a Badger database instance.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the state database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Checkpoints must survive crashes

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func tabKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", tabPrefix, id))
}

// PutTab checkpoints a tab record.
func (s *Store) PutTab(rec TabRecord) error {
	rec.UpdatedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal tab: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tabKey(rec.ID), data)
	})
}

// DeleteTab removes a tab checkpoint.
func (s *Store) DeleteTab(id int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(tabKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Tabs returns all checkpointed tab records.
func (s *Store) Tabs() ([]TabRecord, error) {
	var out []TabRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(tabPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(tabPrefix)); it.ValidForPrefix([]byte(tabPrefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec TabRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("unmarshal tab: %w", err)
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClearTabs removes every tab checkpoint.
func (s *Store) ClearTabs() error {
	tabs, err := s.Tabs()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range tabs {
			if err := txn.Delete(tabKey(rec.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSession stores the authentication session.
func (s *Store) SaveSession(sess Session) error {
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKey), data)
	})
}

// Session returns the stored session. Sessions older than the server token
// lifetime are deleted and reported as missing.
func (s *Store) Session() (*Session, error) {
	var sess Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if time.Since(sess.SavedAt) > sessionMaxAge {
		_ = s.ClearSession()
		return nil, ErrNoSession
	}
	return &sess, nil
}

// ClearSession removes the stored session.
func (s *Store) ClearSession() error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(sessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
