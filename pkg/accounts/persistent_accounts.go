package accounts

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.firedancer.io/lp/pkg/base58"
)

var (
	acctKeyPrefix = []byte("acct/")
	metaKeyPrefix = []byte("meta/")
)

// PersistentAccounts stores accounts in a badger database. Ledger metadata
// lives in the same database under a separate key prefix.
type PersistentAccounts struct {
	db *badger.DB
}

func OpenPersistentAccounts(dir string) (*PersistentAccounts, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts db at %s: %w", dir, err)
	}
	return &PersistentAccounts{db: db}, nil
}

func (p *PersistentAccounts) Close() error {
	return p.db.Close()
}

func acctKey(pubkey *[32]byte) []byte {
	return append(append([]byte{}, acctKeyPrefix...), pubkey[:]...)
}

func (p *PersistentAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	var acctBytes []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(acctKey(pubkey))
		if err != nil {
			return err
		}
		acctBytes, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}

	acct, err := Unmarshal(acctBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize account %s: %w", base58.Encode(pubkey[:]), err)
	}
	return acct, nil
}

func (p *PersistentAccounts) SetAccount(pubkey *[32]byte, acct *Account) error {
	if acct == nil {
		return p.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(acctKey(pubkey))
		})
	}

	acctBytes, err := acct.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize account %s: %w", base58.Encode(pubkey[:]), err)
	}

	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(acctKey(pubkey), acctBytes)
	})
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}
	return nil
}

// Range iterates every stored account in key order until fn returns false.
func (p *PersistentAccounts) Range(fn func(acct *Account) bool) error {
	return p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(acctKeyPrefix); it.ValidForPrefix(acctKeyPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			acct, err := Unmarshal(val)
			if err != nil {
				return err
			}
			if !fn(acct) {
				return nil
			}
		}
		return nil
	})
}

func metaKey(name string) []byte {
	return append(append([]byte{}, metaKeyPrefix...), name...)
}

func (p *PersistentAccounts) GetMeta(name string) ([]byte, error) {
	var val []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return val, err
}

func (p *PersistentAccounts) SetMeta(name string, val []byte) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(name), val)
	})
}

// Commit writes accounts and metadata in one badger transaction, so either
// all of them become visible or none do. A nil account deletes the key.
func (p *PersistentAccounts) Commit(accts map[[32]byte]*Account, meta map[string][]byte) error {
	return p.db.Update(func(txn *badger.Txn) error {
		for pubkey, acct := range accts {
			if acct == nil {
				if err := txn.Delete(acctKey(&pubkey)); err != nil {
					return err
				}
				continue
			}
			acctBytes, err := acct.Marshal()
			if err != nil {
				return fmt.Errorf("failed to serialize account %s: %w", base58.Encode(pubkey[:]), err)
			}
			if err := txn.Set(acctKey(&pubkey), acctBytes); err != nil {
				return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
			}
		}
		for name, val := range meta {
			if err := txn.Set(metaKey(name), val); err != nil {
				return err
			}
		}
		return nil
	})
}
