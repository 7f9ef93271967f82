package localnet

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"
	"github.com/gagliardetto/solana-go"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.firedancer.io/lp/cmd/lp/env"
	"go.firedancer.io/lp/pkg/bank"
	"go.firedancer.io/lp/pkg/client"
	"go.firedancer.io/lp/pkg/escrow"
	"k8s.io/klog/v2"
)

var simulateCmd = cobra.Command{
	Use:   "simulate",
	Short: "Run job lifecycles between generated wallets",
	Args:  cobra.NoArgs,
	Run:   runSimulate,
}

var (
	simJobs    int
	simWorkers int
	simAmount  uint64
)

func init() {
	flags := simulateCmd.Flags()
	flags.IntVar(&simJobs, "jobs", 100, "Number of jobs to run")
	flags.IntVar(&simWorkers, "workers", 8, "Number of concurrent workers")
	flags.Uint64Var(&simAmount, "amount", solana.LAMPORTS_PER_SOL, "Escrow amount per job in lamports")
}

func runSimulate(c *cobra.Command, _ []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()
	b := e.RequireBank()

	if simJobs <= 0 || simWorkers <= 0 {
		e.Exitf("--jobs and --workers must be positive")
	}

	var out io.Writer
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = os.Stderr
	}
	progress := mpb.NewWithContext(ctx, mpb.WithOutput(out))
	bar := progress.AddBar(int64(simJobs),
		mpb.PrependDecorators(decor.Name("jobs "), decor.CountersNoUnit("%d / %d")),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var completed, failed atomic.Int64
	start := time.Now()
	pool := pond.New(simWorkers, simJobs)
	for i := 0; i < simJobs; i++ {
		i := i
		pool.Submit(func() {
			defer bar.Increment()
			if ctx.Err() != nil {
				return
			}
			if err := simulateJob(ctx, b, i); err != nil {
				klog.Warningf("job %d: %s", i, err)
				failed.Add(1)
				return
			}
			completed.Add(1)
		})
	}
	pool.StopAndWait()
	progress.Wait()

	hash, err := b.Hash()
	if err != nil {
		e.Exitf("%s", err)
	}
	elapsed := time.Since(start)
	fmt.Fprintf(e.Out, "completed %d jobs, %d failed in %s (%.1f jobs/s)\n",
		completed.Load(), failed.Load(), elapsed.Round(time.Millisecond),
		float64(completed.Load())/elapsed.Seconds())
	fmt.Fprintf(e.Out, "slot %d, bank hash %s\n", b.Slot(), hash)
}

// simulateJob walks one job from posting to an accepted submission with a
// fresh client and freelancer wallet.
func simulateJob(ctx context.Context, b *bank.Bank, i int) error {
	clientProgram, err := simulatedWallet(ctx, b, simAmount+solana.LAMPORTS_PER_SOL)
	if err != nil {
		return fmt.Errorf("fund client: %w", err)
	}
	freelancer, err := simulatedWallet(ctx, b, solana.LAMPORTS_PER_SOL)
	if err != nil {
		return fmt.Errorf("fund freelancer: %w", err)
	}

	now := max(b.Clock().UnixTimestamp, time.Now().Unix())
	jobPost, _, err := clientProgram.PostJob(ctx, escrow.InitializeJobPostArgs{
		Title:       fmt.Sprintf("sim-%d", i),
		Description: "simulated job",
		Amount:      simAmount,
		StartDate:   now + 60,
		EndDate:     now + 7*86400,
	})
	if err != nil {
		return fmt.Errorf("post job: %w", err)
	}
	application, _, err := freelancer.ApplyToJob(ctx, jobPost, escrow.ApplyToJobArgs{
		ResumeLink:      fmt.Sprintf("https://resume.example/%d", i),
		ExpectedEndDate: now + 86400,
	})
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if _, err := clientProgram.ApproveApplication(ctx, jobPost, application); err != nil {
		return fmt.Errorf("approve application: %w", err)
	}
	if _, err := freelancer.SubmitWork(ctx, jobPost, escrow.SubmitWorkArgs{
		SubmissionLink: fmt.Sprintf("https://work.example/%d", i),
		Narration:      "done",
	}); err != nil {
		return fmt.Errorf("submit work: %w", err)
	}
	if _, err := clientProgram.ApproveSubmission(ctx, jobPost, freelancer.Provider.PublicKey(), "thanks"); err != nil {
		return fmt.Errorf("approve submission: %w", err)
	}
	return nil
}

func simulatedWallet(ctx context.Context, b *bank.Bank, lamports uint64) (*client.Program, error) {
	wallet, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	if _, err := b.Airdrop(ctx, wallet.PublicKey(), lamports); err != nil {
		return nil, err
	}
	return client.NewProgram(client.NewProvider(b, wallet)), nil
}
