// Package localnet implements subcommands that only work against the
// embedded bank.
package localnet

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/lp/cmd/lp/env"
	"go.firedancer.io/lp/pkg/bank"
	"go.firedancer.io/lp/pkg/events"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "localnet",
	Short: "Inspect and drive the local ledger",
}

var (
	airdropCmd = cobra.Command{
		Use:   "airdrop [pubkey]",
		Short: "Transfer lamports from the faucet",
		Args:  cobra.MaximumNArgs(1),
		Run:   runAirdrop,
	}
	statusCmd = cobra.Command{
		Use:   "status",
		Short: "Show the state of the local ledger",
		Args:  cobra.NoArgs,
		Run:   runStatus,
	}
	logsCmd = cobra.Command{
		Use:   "logs <signature>",
		Short: "Show the status and logs of a transaction",
		Args:  cobra.ExactArgs(1),
		Run:   runLogs,
	}
	watchCmd = cobra.Command{
		Use:   "watch",
		Short: "Stream transaction events published to redis",
		Args:  cobra.NoArgs,
		Run:   runWatch,
	}
	warpCmd = cobra.Command{
		Use:   "warp <duration>",
		Short: "Move the ledger clock forward",
		Args:  cobra.ExactArgs(1),
		Run:   runWarp,
	}

	airdropSOL float64
)

func init() {
	airdropCmd.Flags().Float64Var(&airdropSOL, "sol", 10, "Amount to airdrop in SOL")

	Cmd.AddCommand(&airdropCmd, &statusCmd, &logsCmd, &warpCmd, &watchCmd, &simulateCmd)
}

func runAirdrop(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	pubkey := e.Wallet.PublicKey()
	if len(args) > 0 {
		pubkey = env.ParsePubkey("pubkey", args[0])
	}
	if airdropSOL <= 0 {
		e.Exitf("--sol must be positive")
	}
	lamports := uint64(airdropSOL * float64(solana.LAMPORTS_PER_SOL))
	e.CheckTx(e.Cluster.Airdrop(ctx, pubkey, lamports))
}

func runStatus(c *cobra.Command, _ []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()
	b := e.RequireBank()

	blockhash, err := b.LatestBlockhash(ctx)
	if err != nil {
		e.Exitf("%s", err)
	}
	hash, err := b.Hash()
	if err != nil {
		e.Exitf("%s", err)
	}
	var balance uint64
	acct, err := b.GetAccount(ctx, e.Wallet.PublicKey())
	if err != nil {
		e.Exitf("%s", err)
	}
	if acct != nil {
		balance = acct.Lamports
	}
	clock := b.Clock()

	w := tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Ledger:\t%s\n", e.Config.LedgerPath())
	fmt.Fprintf(w, "Slot:\t%d\n", b.Slot())
	fmt.Fprintf(w, "Clock:\t%s\n", env.FormatTime(clock.UnixTimestamp))
	fmt.Fprintf(w, "Latest blockhash:\t%s\n", blockhash)
	fmt.Fprintf(w, "Bank hash:\t%s\n", hash)
	fmt.Fprintf(w, "Faucet:\t%s\n", b.Faucet())
	fmt.Fprintf(w, "Wallet:\t%s\n", e.Wallet.PublicKey())
	fmt.Fprintf(w, "Balance:\t%s\n", env.FormatSOL(balance))
	_ = w.Flush()
}

func runLogs(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()
	b := e.RequireBank()

	sig, err := solana.SignatureFromBase58(args[0])
	if err != nil {
		e.Exitf("invalid signature %q: %s", args[0], err)
	}
	status, err := b.Transaction(ctx, sig)
	if err != nil {
		e.Exitf("%s", err)
	}
	printStatus(e.Out, status)
}

func printStatus(out io.Writer, status *bank.TransactionStatus) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Signature:\t%s\n", status.Signature)
	fmt.Fprintf(w, "Slot:\t%d\n", status.Slot)
	fmt.Fprintf(w, "Block time:\t%s\n", env.FormatTime(status.BlockTime))
	fmt.Fprintf(w, "Fee:\t%s\n", env.FormatSOL(status.Fee))
	fmt.Fprintf(w, "Compute units:\t%d\n", status.ComputeUnits)
	if status.Success() {
		fmt.Fprintf(w, "Result:\tsuccess\n")
	} else {
		fmt.Fprintf(w, "Result:\t%s\n", status.Err)
	}
	_ = w.Flush()
	fmt.Fprintln(out, "Logs:")
	env.PrintLogs(out, status.Logs)
}

func runWarp(c *cobra.Command, args []string) {
	e := env.MustOpen(c)
	defer e.Close()
	b := e.RequireBank()

	d, err := time.ParseDuration(args[0])
	if err != nil {
		e.Exitf("invalid duration %q: %s", args[0], err)
	}
	if d <= 0 {
		e.Exitf("warp duration must be positive")
	}
	target := b.Clock().UnixTimestamp + int64(d/time.Second)
	if err := b.WarpClock(target); err != nil {
		e.Exitf("%s", err)
	}
	fmt.Fprintf(e.Out, "clock now %s\n", env.FormatTime(b.Clock().UnixTimestamp))
}

// runWatch only reads the config, so it can run next to a process that holds
// the ledger open.
func runWatch(c *cobra.Command, _ []string) {
	ctx := c.Context()
	cfg, err := env.LoadConfig()
	if err != nil {
		klog.Exitf("%s", err)
	}
	if cfg.Redis.Addr == "" {
		klog.Exit("watch needs a redis address (--redis-addr or redis.addr in the config)")
	}

	sink := events.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Channel)
	defer sink.Close()
	evs, err := sink.Subscribe(ctx)
	if err != nil {
		klog.Exitf("subscribe to %s: %s", sink.Channel(), err)
	}
	klog.Infof("watching %s on %s", sink.Channel(), cfg.Redis.Addr)

	for ev := range evs {
		result := "success"
		if !ev.Success {
			result = ev.Err
		}
		fmt.Fprintf(c.OutOrStdout(), "slot %d %s fee=%d cu=%d %s\n", ev.Slot, ev.Signature, ev.Fee, ev.ComputeUnits, result)
		if klog.V(1).Enabled() {
			env.PrintLogs(c.OutOrStdout(), ev.Logs)
		}
	}
}
