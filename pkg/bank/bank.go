package bank

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/config"
	"go.firedancer.io/lp/pkg/escrow"
	"go.firedancer.io/lp/pkg/events"
	"go.firedancer.io/lp/pkg/sealevel"
	"go.firedancer.io/lp/pkg/util"
	"k8s.io/klog/v2"
)

// FaucetLamports is the genesis balance of the faucet that funds airdrops.
const FaucetLamports = 500_000_000 * solana.LAMPORTS_PER_SOL

// Bank is a single-node ledger that executes transactions against the native
// programs in its registry. Every transaction is processed in its own slot.
type Bank struct {
	mu        sync.Mutex
	airdropMu sync.Mutex

	cfg      config.Bank
	store    store
	programs *sealevel.ProgramRegistry
	rent     sealevel.SysvarRent
	sink     events.Sink
	now      func() time.Time

	state  *ledgerState
	faucet solana.PrivateKey
	closed bool
}

type Option func(b *Bank)

// WithSink publishes an event for every processed transaction.
func WithSink(sink events.Sink) Option {
	return func(b *Bank) { b.sink = sink }
}

// WithNow overrides the wall clock used to advance the clock sysvar.
func WithNow(now func() time.Time) Option {
	return func(b *Bank) { b.now = now }
}

// Open creates a bank from genesis, or resumes the ledger at cfg.Ledger.
// An empty ledger path keeps all state in memory.
func Open(cfg *config.Config, opts ...Option) (*Bank, error) {
	b := &Bank{
		cfg:      cfg.Bank,
		programs: sealevel.NewProgramRegistry(),
		rent:     sealevel.DefaultRent(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	escrow.Register(b.programs)

	if cfg.Ledger == "" {
		b.store = newMemStore()
	} else {
		persistent, err := accounts.OpenPersistentAccounts(cfg.LedgerPath())
		if err != nil {
			return nil, err
		}
		b.store = persistent
	}

	stateBytes, err := b.store.GetMeta(stateMetaKey)
	if err != nil {
		_ = b.store.Close()
		return nil, fmt.Errorf("failed to read ledger state: %w", err)
	}

	if stateBytes == nil {
		err = b.genesis()
	} else {
		b.state, err = unmarshalLedgerState(stateBytes)
		if err == nil {
			b.faucet = b.state.Faucet
			klog.Infof("resumed ledger at slot %d", b.state.Slot)
		}
	}
	if err != nil {
		_ = b.store.Close()
		return nil, err
	}

	return b, nil
}

func (b *Bank) genesis() error {
	faucet, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	b.faucet = faucet

	timestamp := b.cfg.GenesisTimestamp
	if timestamp == 0 {
		timestamp = b.now().Unix()
	}

	genesisAccts := []accounts.Account{
		{Key: sealevel.SystemProgramAddr, Lamports: 1, Data: []byte("system_program"), Owner: sealevel.NativeLoaderAddr, Executable: true},
		escrow.ProgramAccount(),
		{Key: faucet.PublicKey(), Lamports: FaucetLamports, Data: make([]byte, 0), Owner: sealevel.SystemProgramAddr},
	}
	batch := newTxBatch(b.store)
	for idx := range genesisAccts {
		acct := &genesisAccts[idx]
		if err := batch.SetAccount((*[32]byte)(&acct.Key), acct); err != nil {
			return err
		}
	}

	clock := sealevel.SysvarClock{UnixTimestamp: timestamp, EpochStartTimestamp: timestamp}
	if err := sealevel.WriteClockSysvar(batch, clock); err != nil {
		return err
	}
	if err := sealevel.WriteRentSysvar(batch, b.rent); err != nil {
		return err
	}

	genesisHash := solana.HashFromBytes(sha256Sum([]byte("lp genesis"), faucet.PublicKey().Bytes()))
	state := &ledgerState{
		Clock:       clock,
		Blockhashes: []solana.Hash{genesisHash},
		Faucet:      faucet,
	}
	data, err := state.marshal()
	if err != nil {
		return err
	}
	batch.SetMeta(stateMetaKey, data)
	if err := batch.commit(); err != nil {
		return err
	}
	b.state = state
	klog.Infof("created genesis with blockhash %s, faucet %s", genesisHash, faucet.PublicKey())
	return nil
}

func sha256Sum(parts ...[]byte) []byte {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write(p)
	}
	return hasher.Sum(nil)
}

func (b *Bank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.store.Close()
}

func (b *Bank) Slot() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Slot
}

func (b *Bank) Clock() sealevel.SysvarClock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clock
}

func (b *Bank) Faucet() solana.PublicKey {
	return b.faucet.PublicKey()
}

func (b *Bank) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Blockhashes[len(b.state.Blockhashes)-1], nil
}

func (b *Bank) isRecentBlockhash(hash solana.Hash) bool {
	for _, h := range b.state.Blockhashes {
		if h == hash {
			return true
		}
	}
	return false
}

// GetAccount returns the account at pubkey, or nil if it does not exist.
func (b *Bank) GetAccount(ctx context.Context, pubkey solana.PublicKey) (*accounts.Account, error) {
	acct, err := b.store.GetAccount((*[32]byte)(&pubkey))
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Lamports == 0 {
		return nil, nil
	}
	return acct, nil
}

// ProgramAccounts returns all accounts owned by program whose data starts
// with prefix, ordered by address.
func (b *Bank) ProgramAccounts(ctx context.Context, program solana.PublicKey, prefix []byte) ([]*accounts.Account, error) {
	var found []*accounts.Account
	err := b.store.Range(func(acct *accounts.Account) bool {
		if acct.Owner == program && acct.Lamports != 0 && bytes.HasPrefix(acct.Data, prefix) {
			found = append(found, acct)
		}
		return ctx.Err() == nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		return util.PubkeyCmp(found[i].Key, found[j].Key)
	})
	return found, nil
}

func (b *Bank) MinimumBalance(ctx context.Context, dataLen uint64) (uint64, error) {
	return b.rent.MinimumBalance(dataLen), nil
}

// Transaction returns the recorded status of sig.
func (b *Bank) Transaction(ctx context.Context, sig solana.Signature) (*TransactionStatus, error) {
	status, err := b.loadStatus(sig)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, ErrTransactionNotFound
	}
	return status, nil
}

func (b *Bank) TransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	status, err := b.Transaction(ctx, sig)
	if err != nil {
		return nil, err
	}
	return status.Logs, nil
}

// Hash is the blake3 hash over the accounts modified in the last slot,
// sorted by address.
func (b *Bank) Hash() (solana.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := util.DedupePubkeys(append([]solana.PublicKey{}, b.state.Modified...))

	hasher := blake3.New()
	for _, key := range keys {
		acct, err := b.store.GetAccount((*[32]byte)(&key))
		if err != nil {
			return solana.Hash{}, err
		}
		if acct == nil {
			acct = &accounts.Account{Key: key}
		}
		_, _ = hasher.Write(util.CalculateAcctHash(*acct))
	}
	return solana.HashFromBytes(hasher.Sum(nil)), nil
}

// WarpClock moves the clock sysvar to the given unix timestamp.
func (b *Bank) WarpClock(unixTimestamp int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	next := *b.state
	next.Clock.UnixTimestamp = unixTimestamp
	data, err := next.marshal()
	if err != nil {
		return err
	}

	batch := newTxBatch(b.store)
	if err := sealevel.WriteClockSysvar(batch, next.Clock); err != nil {
		return err
	}
	batch.SetMeta(stateMetaKey, data)
	if err := batch.commit(); err != nil {
		return err
	}
	b.state = &next
	klog.Infof("warped clock to %s", time.Unix(unixTimestamp, 0).UTC())
	return nil
}
