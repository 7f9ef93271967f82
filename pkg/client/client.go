// Package client is the typed handle for the escrow program, usable against
// the local bank or a live cluster.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/escrow"
	"k8s.io/klog/v2"
)

var ErrAccountNotFound = errors.New("account not found")

// Cluster is where transactions are sent and accounts are read from.
type Cluster interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetAccount(ctx context.Context, pubkey solana.PublicKey) (*accounts.Account, error)
	ProgramAccounts(ctx context.Context, program solana.PublicKey, prefix []byte) ([]*accounts.Account, error)
	TransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error)
	Airdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64) (solana.Signature, error)
	MinimumBalance(ctx context.Context, dataLen uint64) (uint64, error)
}

// Provider pairs a cluster with the wallet that pays for and signs
// transactions.
type Provider struct {
	Cluster Cluster
	Wallet  solana.PrivateKey
}

func NewProvider(cluster Cluster, wallet solana.PrivateKey) *Provider {
	return &Provider{Cluster: cluster, Wallet: wallet}
}

func (p *Provider) PublicKey() solana.PublicKey {
	return p.Wallet.PublicKey()
}

// Send signs ixs with the wallet in a single transaction and submits it.
func (p *Provider) Send(ctx context.Context, ixs ...solana.Instruction) (solana.Signature, error) {
	blockhash, err := p.Cluster.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get blockhash: %w", err)
	}

	payer := p.Wallet.PublicKey()
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, err
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key == payer {
			return &p.Wallet
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := p.Cluster.SendTransaction(ctx, tx)
	if err != nil {
		return sig, err
	}
	klog.V(1).Infof("transaction %s confirmed", sig)
	return sig, nil
}

type Program struct {
	Provider  *Provider
	ProgramID solana.PublicKey
}

func NewProgram(provider *Provider) *Program {
	return &Program{Provider: provider, ProgramID: escrow.ProgramID}
}

// Initialize invokes the program's initialize instruction and returns the
// transaction signature.
func (p *Program) Initialize(ctx context.Context) (solana.Signature, error) {
	return p.Provider.Send(ctx, escrow.NewInitializeInstruction())
}

// PostJob creates a job post owned by the wallet and funds its escrow.
func (p *Program) PostJob(ctx context.Context, args escrow.InitializeJobPostArgs) (solana.PublicKey, solana.Signature, error) {
	jobPost, _, err := escrow.FindJobPostAddress(p.Provider.PublicKey(), args.Title)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	ix, err := escrow.NewInitializeJobPostInstruction(p.Provider.PublicKey(), args)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	sig, err := p.Provider.Send(ctx, ix)
	return jobPost, sig, err
}

// ApplyToJob applies to jobPost as the wallet.
func (p *Program) ApplyToJob(ctx context.Context, jobPost solana.PublicKey, args escrow.ApplyToJobArgs) (solana.PublicKey, solana.Signature, error) {
	application, _, err := escrow.FindApplicationAddress(jobPost, p.Provider.PublicKey())
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	ix, err := escrow.NewApplyToJobInstruction(p.Provider.PublicKey(), jobPost, args)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	sig, err := p.Provider.Send(ctx, ix)
	return application, sig, err
}

func (p *Program) ApproveApplication(ctx context.Context, jobPost solana.PublicKey, application solana.PublicKey) (solana.Signature, error) {
	return p.Provider.Send(ctx, escrow.NewApproveApplicationInstruction(p.Provider.PublicKey(), jobPost, application))
}

func (p *Program) SubmitWork(ctx context.Context, jobPost solana.PublicKey, args escrow.SubmitWorkArgs) (solana.Signature, error) {
	ix, err := escrow.NewSubmitWorkInstruction(p.Provider.PublicKey(), jobPost, args)
	if err != nil {
		return solana.Signature{}, err
	}
	return p.Provider.Send(ctx, ix)
}

// ApproveSubmission accepts the freelancer's work and releases the escrow.
func (p *Program) ApproveSubmission(ctx context.Context, jobPost solana.PublicKey, freelancer solana.PublicKey, review string) (solana.Signature, error) {
	ix, err := escrow.NewApproveSubmissionInstruction(p.Provider.PublicKey(), jobPost, freelancer, escrow.ReviewArgs{ClientReview: review})
	if err != nil {
		return solana.Signature{}, err
	}
	return p.Provider.Send(ctx, ix)
}

func (p *Program) RejectSubmission(ctx context.Context, jobPost solana.PublicKey, freelancer solana.PublicKey, review string) (solana.Signature, error) {
	ix, err := escrow.NewRejectSubmissionInstruction(p.Provider.PublicKey(), jobPost, freelancer, escrow.ReviewArgs{ClientReview: review})
	if err != nil {
		return solana.Signature{}, err
	}
	return p.Provider.Send(ctx, ix)
}

func (p *Program) CancelJob(ctx context.Context, jobPost solana.PublicKey) (solana.Signature, error) {
	ix, err := escrow.NewCancelJobInstruction(p.Provider.PublicKey(), jobPost)
	if err != nil {
		return solana.Signature{}, err
	}
	return p.Provider.Send(ctx, ix)
}
