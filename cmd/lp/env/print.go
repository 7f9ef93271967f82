package env

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/segmentio/textio"
	"go.firedancer.io/lp/pkg/bank"
	"k8s.io/klog/v2"
)

// PrintLogs writes program logs indented under a header line.
func PrintLogs(w io.Writer, logs []string) {
	pw := textio.NewPrefixWriter(w, "    ")
	for _, line := range logs {
		fmt.Fprintln(pw, line)
	}
	_ = pw.Flush()
}

// CheckTx prints the signature of a transaction, or its logs and the error
// before exiting if it failed.
func (e *Env) CheckTx(sig solana.Signature, err error) {
	if err == nil {
		fmt.Fprintln(e.Out, sig)
		return
	}

	var txErr *bank.TransactionError
	if errors.As(err, &txErr) {
		fmt.Fprintf(os.Stderr, "transaction %s failed:\n", txErr.Signature)
		PrintLogs(os.Stderr, txErr.Logs)
	}
	e.Exitf("%s", err)
}

// Exitf closes the environment and exits with a fatal log line.
func (e *Env) Exitf(format string, args ...any) {
	e.Close()
	klog.Exitf(format, args...)
}

func FormatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func FormatSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d SOL", lamports/solana.LAMPORTS_PER_SOL, lamports%solana.LAMPORTS_PER_SOL)
}
