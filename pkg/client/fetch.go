package client

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/escrow"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

type JobPostAccount struct {
	Key solana.PublicKey
	*escrow.JobPost
}

type ApplicationAccount struct {
	Key solana.PublicKey
	*escrow.Application
}

// JobSummary is a job post with its escrow balance and every application
// made to it.
type JobSummary struct {
	JobPost       JobPostAccount
	Escrow        solana.PublicKey
	EscrowBalance uint64
	Applications  []ApplicationAccount
}

func (p *Program) programAccount(ctx context.Context, key solana.PublicKey) (*accounts.Account, error) {
	acct, err := p.Provider.Cluster.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	if solana.PublicKeyFromBytes(acct.Owner[:]) != p.ProgramID {
		return nil, fmt.Errorf("account %s is not owned by %s", key, p.ProgramID)
	}
	return acct, nil
}

func (p *Program) JobPost(ctx context.Context, key solana.PublicKey) (*escrow.JobPost, error) {
	acct, err := p.programAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return escrow.DecodeJobPost(acct.Data)
}

func (p *Program) Application(ctx context.Context, key solana.PublicKey) (*escrow.Application, error) {
	acct, err := p.programAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return escrow.DecodeApplication(acct.Data)
}

// JobPosts lists every job post of the program. Accounts that fail to decode
// are skipped.
func (p *Program) JobPosts(ctx context.Context) ([]JobPostAccount, error) {
	accts, err := p.Provider.Cluster.ProgramAccounts(ctx, p.ProgramID, escrow.JobPostDiscriminator[:])
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(accts, func(acct *accounts.Account, _ int) (JobPostAccount, bool) {
		jp, err := escrow.DecodeJobPost(acct.Data)
		if err != nil {
			klog.Warningf("skipping job post %s: %s", acct.Key, err)
			return JobPostAccount{}, false
		}
		return JobPostAccount{Key: acct.Key, JobPost: jp}, true
	}), nil
}

// Applications lists the applications made to jobPost.
func (p *Program) Applications(ctx context.Context, jobPost solana.PublicKey) ([]ApplicationAccount, error) {
	accts, err := p.Provider.Cluster.ProgramAccounts(ctx, p.ProgramID, escrow.ApplicationDiscriminator[:])
	if err != nil {
		return nil, err
	}

	apps := lo.FilterMap(accts, func(acct *accounts.Account, _ int) (ApplicationAccount, bool) {
		app, err := escrow.DecodeApplication(acct.Data)
		if err != nil {
			klog.Warningf("skipping application %s: %s", acct.Key, err)
			return ApplicationAccount{}, false
		}
		return ApplicationAccount{Key: acct.Key, Application: app}, true
	})

	return lo.Filter(apps, func(app ApplicationAccount, _ int) bool {
		return app.JobPost == jobPost
	}), nil
}

func (p *Program) JobSummary(ctx context.Context, jobPost solana.PublicKey) (*JobSummary, error) {
	escrowKey, _, err := escrow.FindEscrowAddress(jobPost)
	if err != nil {
		return nil, err
	}
	summary := &JobSummary{Escrow: escrowKey}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jp, err := p.JobPost(gctx, jobPost)
		if err != nil {
			return err
		}
		summary.JobPost = JobPostAccount{Key: jobPost, JobPost: jp}
		return nil
	})
	g.Go(func() error {
		acct, err := p.Provider.Cluster.GetAccount(gctx, escrowKey)
		if err != nil {
			return err
		}
		if acct != nil {
			summary.EscrowBalance = acct.Lamports
		}
		return nil
	})
	g.Go(func() error {
		apps, err := p.Applications(gctx, jobPost)
		if err != nil {
			return err
		}
		summary.Applications = apps
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
