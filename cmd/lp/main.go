package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.firedancer.io/lp/cmd/lp/application"
	"go.firedancer.io/lp/cmd/lp/env"
	"go.firedancer.io/lp/cmd/lp/initialize"
	"go.firedancer.io/lp/cmd/lp/job"
	"go.firedancer.io/lp/cmd/lp/localnet"
	"k8s.io/klog/v2"
)

var cmd = cobra.Command{
	Use:   "lp",
	Short: "Freelance job escrow on Solana",
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)
	env.AddFlags(&cmd)

	cmd.AddCommand(
		&initialize.Cmd,
		&job.Cmd,
		&application.Cmd,
		&localnet.Cmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
