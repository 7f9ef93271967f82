package bank

import (
	"sync"

	"go.firedancer.io/lp/pkg/accounts"
)

// store is the account database backing a bank, plus a small metadata
// keyspace for ledger state.
type store interface {
	accounts.Accounts
	Range(fn func(acct *accounts.Account) bool) error
	GetMeta(name string) ([]byte, error)
	SetMeta(name string, val []byte) error
	// Commit applies every account and metadata write atomically. A nil
	// account deletes it.
	Commit(accts map[[32]byte]*accounts.Account, meta map[string][]byte) error
	Close() error
}

type memStore struct {
	accounts.MemAccounts

	mu   sync.RWMutex
	meta map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{MemAccounts: accounts.NewMemAccounts(), meta: make(map[string][]byte)}
}

func (m *memStore) Range(fn func(acct *accounts.Account) bool) error {
	m.MemAccounts.Range(fn)
	return nil
}

func (m *memStore) GetMeta(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.meta[name]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, val...), nil
}

func (m *memStore) SetMeta(name string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[name] = append([]byte{}, val...)
	return nil
}

func (m *memStore) Commit(accts map[[32]byte]*accounts.Account, meta map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pubkey, acct := range accts {
		_ = m.MemAccounts.SetAccount(&pubkey, acct)
	}
	for name, val := range meta {
		m.meta[name] = append([]byte{}, val...)
	}
	return nil
}

func (m *memStore) Close() error {
	return nil
}

// txBatch collects the writes of one transaction on top of the store. Reads
// see pending writes first. Nothing reaches the store until commit.
type txBatch struct {
	store    store
	accounts map[[32]byte]*accounts.Account
	meta     map[string][]byte
}

func newTxBatch(s store) *txBatch {
	return &txBatch{
		store:    s,
		accounts: make(map[[32]byte]*accounts.Account),
		meta:     make(map[string][]byte),
	}
}

func (t *txBatch) GetAccount(pubkey *[32]byte) (*accounts.Account, error) {
	if acct, ok := t.accounts[*pubkey]; ok {
		return acct.Clone(), nil
	}
	return t.store.GetAccount(pubkey)
}

func (t *txBatch) SetAccount(pubkey *[32]byte, acct *accounts.Account) error {
	t.accounts[*pubkey] = acct.Clone()
	return nil
}

func (t *txBatch) SetMeta(name string, val []byte) {
	t.meta[name] = append([]byte{}, val...)
}

func (t *txBatch) commit() error {
	return t.store.Commit(t.accounts, t.meta)
}
