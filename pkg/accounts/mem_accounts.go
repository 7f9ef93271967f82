package accounts

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const memAccountsShards = 32

type memShard struct {
	mu sync.RWMutex
	m  map[[32]byte]*Account
}

// MemAccounts is an in-memory account store. Accounts are copied on the way
// in and out so callers never alias stored state.
type MemAccounts struct {
	shards *[memAccountsShards]memShard
}

func NewMemAccounts() MemAccounts {
	shards := new([memAccountsShards]memShard)
	for i := range shards {
		shards[i].m = make(map[[32]byte]*Account)
	}
	return MemAccounts{shards: shards}
}

func (m MemAccounts) shard(pubkey *[32]byte) *memShard {
	return &m.shards[xxhash.Sum64(pubkey[:])%memAccountsShards]
}

func (m MemAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	s := m.shard(pubkey)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[*pubkey].Clone(), nil
}

func (m MemAccounts) SetAccount(pubkey *[32]byte, acc *Account) error {
	s := m.shard(pubkey)
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc == nil {
		delete(s.m, *pubkey)
		return nil
	}
	s.m[*pubkey] = acc.Clone()
	return nil
}

// Range calls fn for every stored account until fn returns false.
func (m MemAccounts) Range(fn func(acct *Account) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		accts := make([]*Account, 0, len(s.m))
		for _, acct := range s.m {
			accts = append(accts, acct.Clone())
		}
		s.mu.RUnlock()
		for _, acct := range accts {
			if !fn(acct) {
				return
			}
		}
	}
}

func (m MemAccounts) Len() int {
	var n int
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}
