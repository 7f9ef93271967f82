package bank

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Airdrop transfers lamports from the genesis faucet to pubkey in a regular
// system transfer transaction.
func (b *Bank) Airdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64) (solana.Signature, error) {
	b.airdropMu.Lock()
	defer b.airdropMu.Unlock()

	blockhash, err := b.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	faucet := b.faucet.PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, faucet, pubkey).Build()},
		blockhash,
		solana.TransactionPayer(faucet),
	)
	if err != nil {
		return solana.Signature{}, err
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key == faucet {
			return &b.faucet
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, err
	}

	return b.ProcessTransaction(ctx, tx)
}
