package initialize

import (
	"github.com/spf13/cobra"
	"go.firedancer.io/lp/cmd/lp/env"
)

var Cmd = cobra.Command{
	Use:   "initialize",
	Short: "Invoke the program's initialize instruction and print the signature",
	Args:  cobra.NoArgs,
	Run:   run,
}

func run(c *cobra.Command, _ []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	e.CheckTx(e.Program.Initialize(ctx))
}
