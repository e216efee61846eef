// Package badgerstore stores user records in an embedded Badger key-value database.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pyrechat/pyre-server/internal/store"
)

const userKeyPrefix = "user:"

// BadgerStore implements store.UserStore.
type BadgerStore struct {
	db *badger.DB
}

// New opens (or creates) a Badger database in dir. An empty dir opens an
// in-memory database.
func New(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// CreateUser writes the user record unless the key already exists.
func (s *BadgerStore) CreateUser(_ context.Context, user store.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(user.Username)
		_, getErr := txn.Get(key)
		if getErr == nil {
			return store.ErrUserExists
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("lookup user: %w", getErr)
		}
		return txn.Set(key, data)
	})
}

// GetUser loads the user record.
func (s *BadgerStore) GetUser(_ context.Context, username string) (*store.User, error) {
	var user store.User

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func userKey(username string) []byte {
	return []byte(userKeyPrefix + username)
}
