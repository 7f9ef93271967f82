package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/metrics"
	"k8s.io/klog/v2"
)

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 90 * time.Second

	// maxTrackedBlockhashes bounds the blockhash expiry table.
	maxTrackedBlockhashes = 256
)

var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrBlockhashExpired  = errors.New("blockhash expired before the transaction was confirmed")
	ErrConfirmTimeout    = errors.New("timed out waiting for confirmation")
)

type RpcClient struct {
	client     *rpc.Client
	commitment rpc.CommitmentType

	PollInterval time.Duration
	// ConfirmTimeout bounds the wait for a transaction whose blockhash
	// expiry is unknown, or a cluster that stops answering.
	ConfirmTimeout time.Duration

	mu          sync.Mutex
	latency     ewma.MovingAverage
	lastValidBH map[solana.Hash]uint64
}

func NewRpcClient(endpoint string, commitment rpc.CommitmentType) *RpcClient {
	return &RpcClient{
		client:         rpc.New(endpoint),
		commitment:     commitment,
		PollInterval:   DefaultPollInterval,
		ConfirmTimeout: DefaultConfirmTimeout,
		latency:        ewma.NewMovingAverage(),
		lastValidBH:    make(map[solana.Hash]uint64),
	}
}

// observe records the latency of a request started at start.
func (c *RpcClient) observe(method string, start time.Time) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.RPCDuration.WithLabelValues(method).Observe(ms)

	c.mu.Lock()
	c.latency.Add(ms)
	c.mu.Unlock()
}

// Latency is the moving average of request latency.
func (c *RpcClient) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.latency.Value() * float64(time.Millisecond))
}

func (c *RpcClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	defer c.observe("getLatestBlockhash", time.Now())

	out, err := c.client.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, err
	}

	c.mu.Lock()
	if len(c.lastValidBH) >= maxTrackedBlockhashes {
		clear(c.lastValidBH)
	}
	c.lastValidBH[out.Value.Blockhash] = out.Value.LastValidBlockHeight
	c.mu.Unlock()

	return out.Value.Blockhash, nil
}

func (c *RpcClient) lastValidBlockHeight(blockhash solana.Hash) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height, ok := c.lastValidBH[blockhash]
	return height, ok
}

// SendTransaction submits tx and waits until it reaches the configured
// commitment level. It gives up once the chain is past the last valid block
// height of the transaction's blockhash, after ConfirmTimeout, or when ctx is
// done. RPC errors while polling are retried.
func (c *RpcClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{PreflightCommitment: c.commitment})
	c.observe("sendTransaction", start)
	if err != nil {
		return solana.Signature{}, err
	}
	klog.V(1).Infof("sent transaction %s, waiting for %s", sig, c.commitment)

	lastValid, expiryKnown := c.lastValidBlockHeight(tx.Message.RecentBlockhash)

	deadline := time.NewTimer(c.ConfirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.signatureStatus(ctx, sig)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return sig, ctx.Err()
			}
			klog.V(1).Infof("polling status of %s: %s", sig, err)
		case status == nil:
			if expiryKnown && c.pastBlockHeight(ctx, lastValid) {
				return sig, fmt.Errorf("%w: %s (last valid block height %d)", ErrBlockhashExpired, sig, lastValid)
			}
		case status.Err != nil:
			return sig, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err)
		case reached(status.ConfirmationStatus, c.commitment):
			return sig, nil
		}

		select {
		case <-ctx.Done():
			return sig, ctx.Err()
		case <-deadline.C:
			return sig, fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, sig, c.ConfirmTimeout)
		case <-ticker.C:
		}
	}
}

// signatureStatus returns nil while the cluster has not seen sig.
func (c *RpcClient) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	defer c.observe("getSignatureStatuses", time.Now())

	out, err := c.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

// pastBlockHeight reports whether the current block height exceeds height.
// A failed lookup counts as not past.
func (c *RpcClient) pastBlockHeight(ctx context.Context, height uint64) bool {
	defer c.observe("getBlockHeight", time.Now())

	current, err := c.client.GetBlockHeight(ctx, c.commitment)
	if err != nil {
		klog.V(1).Infof("getBlockHeight: %s", err)
		return false
	}
	return current > height
}

func confirmationLevel(status rpc.ConfirmationStatusType) int {
	switch status {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	}
	return 0
}

func reached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	return confirmationLevel(status) >= confirmationLevel(rpc.ConfirmationStatusType(commitment))
}

func accountFromRpc(key solana.PublicKey, acct *rpc.Account) *accounts.Account {
	out := &accounts.Account{
		Key:        key,
		Lamports:   acct.Lamports,
		Owner:      acct.Owner,
		Executable: acct.Executable,
		Data:       make([]byte, 0),
	}
	if acct.Data != nil {
		out.Data = acct.Data.GetBinary()
	}
	return out
}

// GetAccount returns nil for accounts that do not exist.
func (c *RpcClient) GetAccount(ctx context.Context, pubkey solana.PublicKey) (*accounts.Account, error) {
	defer c.observe("getAccountInfo", time.Now())

	out, err := c.client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return accountFromRpc(pubkey, out.Value), nil
}

// ProgramAccounts returns accounts owned by program whose data starts with
// prefix.
func (c *RpcClient) ProgramAccounts(ctx context.Context, program solana.PublicKey, prefix []byte) ([]*accounts.Account, error) {
	defer c.observe("getProgramAccounts", time.Now())

	opts := &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	}
	if len(prefix) != 0 {
		opts.Filters = []rpc.RPCFilter{{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(prefix)}}}
	}

	out, err := c.client.GetProgramAccountsWithOpts(ctx, program, opts)
	if err != nil {
		return nil, err
	}

	accts := make([]*accounts.Account, 0, len(out))
	for _, keyed := range out {
		if keyed == nil || keyed.Account == nil {
			continue
		}
		accts = append(accts, accountFromRpc(keyed.Pubkey, keyed.Account))
	}
	return accts, nil
}

func (c *RpcClient) Airdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64) (solana.Signature, error) {
	defer c.observe("requestAirdrop", time.Now())
	return c.client.RequestAirdrop(ctx, pubkey, lamports, c.commitment)
}

func (c *RpcClient) MinimumBalance(ctx context.Context, dataLen uint64) (uint64, error) {
	defer c.observe("getMinimumBalanceForRentExemption", time.Now())
	return c.client.GetMinimumBalanceForRentExemption(ctx, dataLen, c.commitment)
}
