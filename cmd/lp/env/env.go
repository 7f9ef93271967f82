// Package env holds the state shared by lp subcommands: configuration,
// the cluster connection and the wallet.
package env

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.firedancer.io/lp/pkg/bank"
	"go.firedancer.io/lp/pkg/client"
	"go.firedancer.io/lp/pkg/config"
	"go.firedancer.io/lp/pkg/events"
	"go.firedancer.io/lp/pkg/metrics"
	"go.firedancer.io/lp/pkg/rpcclient"
	"k8s.io/klog/v2"
)

var (
	flagConfig      string
	flagCluster     string
	flagLedger      string
	flagWallet      string
	flagMetricsAddr string
	flagRedisAddr   string
)

// AddFlags registers the global flags on the root command.
func AddFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to config file (default ./lp.yaml if present)")
	flags.StringVarP(&flagCluster, "cluster", "u", "", "Cluster: localnet, devnet, testnet, mainnet-beta or an RPC URL")
	flags.StringVar(&flagLedger, "ledger", "", "Ledger directory of the local bank")
	flags.StringVarP(&flagWallet, "wallet", "k", "", "Path to keypair file")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	flags.StringVar(&flagRedisAddr, "redis-addr", "", "Publish transaction events to this redis server (localnet only)")
}

type Env struct {
	Config  *config.Config
	Cluster client.Cluster
	// Bank is set when running against the local ledger.
	Bank    *bank.Bank
	Wallet  solana.PrivateKey
	Program *client.Program
	Out     io.Writer

	closers []func() error
}

// LoadConfig reads the config file and applies flag overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	if flagCluster != "" {
		cfg.Cluster = flagCluster
	}
	if flagLedger != "" {
		cfg.Ledger = flagLedger
	}
	if flagWallet != "" {
		cfg.Wallet = flagWallet
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if flagRedisAddr != "" {
		cfg.Redis.Addr = flagRedisAddr
	}
	if cfg.IsLocalnet() && cfg.Ledger == "" {
		cfg.Ledger = config.DefaultLocalLedger
	}
	return cfg, nil
}

// Open connects to the configured cluster and loads the wallet.
func Open(ctx context.Context) (*Env, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	e := &Env{Config: cfg, Out: os.Stdout}

	metrics.Register()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				klog.Errorf("metrics server: %s", err)
			}
		}()
	}

	if cfg.IsLocalnet() {
		sinks := events.MultiSink{events.LogSink{}}
		if cfg.Redis.Addr != "" {
			redisSink := events.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Channel)
			sinks = append(sinks, redisSink)
			e.closers = append(e.closers, redisSink.Close)
		}

		b, err := bank.Open(cfg, bank.WithSink(sinks))
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Bank = b
		e.Cluster = b
		e.closers = append(e.closers, b.Close)
	} else {
		c := rpcclient.NewRpcClient(cfg.Endpoint(), rpc.CommitmentType(cfg.Commitment))
		c.ConfirmTimeout = cfg.ConfirmTimeout
		e.Cluster = c
	}

	e.Wallet, err = loadWallet(cfg.WalletPath(), cfg.IsLocalnet())
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Program = client.NewProgram(client.NewProvider(e.Cluster, e.Wallet))

	klog.V(1).Infof("cluster %s, wallet %s", cfg.Cluster, e.Wallet.PublicKey())
	return e, nil
}

// MustOpen is Open for command handlers. Output goes to the command's
// writer.
func MustOpen(c *cobra.Command) *Env {
	e, err := Open(c.Context())
	if err != nil {
		klog.Exitf("%s", err)
	}
	e.Out = c.OutOrStdout()
	return e
}

func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			klog.Warningf("close: %s", err)
		}
	}
	e.closers = nil
}

// RequireBank exits unless the command runs against the local ledger.
func (e *Env) RequireBank() *bank.Bank {
	if e.Bank == nil {
		e.Exitf("this command needs --cluster %s", config.ClusterLocalnet)
	}
	return e.Bank
}

// loadWallet reads a solana-keygen keypair file. On localnet a missing
// wallet is created.
func loadWallet(path string, create bool) (solana.PrivateKey, error) {
	if _, err := os.Stat(path); !create || !errors.Is(err, os.ErrNotExist) {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load wallet %s: %w", path, err)
		}
		return key, nil
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	if err := WriteKeypair(path, key); err != nil {
		return nil, err
	}
	klog.Infof("created new wallet %s at %s", key.PublicKey(), path)
	return key, nil
}

// WriteKeypair stores key in the solana-keygen JSON format.
func WriteKeypair(path string, key solana.PrivateKey) error {
	data, err := json.Marshal(lo.Map(key, func(b byte, _ int) int { return int(b) }))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ParsePubkey parses a base58 argument, exiting on failure.
func ParsePubkey(name string, s string) solana.PublicKey {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		klog.Exitf("invalid %s %q: %s", name, s, err)
	}
	return pk
}
