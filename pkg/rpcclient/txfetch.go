package rpcclient

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func (c *RpcClient) GetTransactionMeta(ctx context.Context, sig solana.Signature) (*rpc.TransactionMeta, error) {
	defer c.observe("getTransaction", time.Now())

	maxSupportedTxVer := uint64(0)
	commitment := c.commitment
	if commitment == rpc.CommitmentProcessed {
		commitment = rpc.CommitmentConfirmed
	}

	tx, err := c.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     commitment,
		MaxSupportedTransactionVersion: &maxSupportedTxVer,
	})
	if err != nil {
		return nil, err
	}

	return tx.Meta, nil
}

func (c *RpcClient) TransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	meta, err := c.GetTransactionMeta(ctx, sig)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}
	return meta.LogMessages, nil
}
