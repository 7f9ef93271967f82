package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile  = "lp.yaml"
	DefaultLocalLedger = "test-ledger"
	DefaultWallet      = "~/.config/solana/id.json"
	DefaultCluster     = ClusterLocalnet
	DefaultCommitment  = "confirmed"

	DefaultConfirmTimeout = 90 * time.Second

	DefaultLamportsPerSignature = 5000
	DefaultMaxBlockhashAge      = 150
)

const (
	ClusterLocalnet = "localnet"
	ClusterDevnet   = "devnet"
	ClusterTestnet  = "testnet"
	ClusterMainnet  = "mainnet-beta"
)

type Config struct {
	// Cluster is "localnet", a well-known cluster moniker, or an RPC URL.
	Cluster    string `yaml:"cluster"`
	Ledger     string `yaml:"ledger"`
	Wallet     string `yaml:"wallet"`
	Commitment string `yaml:"commitment"`
	// ConfirmTimeout bounds how long a remote send waits for confirmation.
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`

	MetricsAddr string `yaml:"metrics_addr"`

	Redis Redis `yaml:"redis"`
	Bank  Bank  `yaml:"bank"`
}

type Redis struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// Bank tunes the local ledger.
type Bank struct {
	LamportsPerSignature uint64 `yaml:"lamports_per_signature"`
	MaxBlockhashAge      int    `yaml:"max_blockhash_age"`
	// GenesisTimestamp overrides the wall clock at genesis (unix seconds).
	GenesisTimestamp int64 `yaml:"genesis_timestamp"`
}

func Default() *Config {
	return &Config{
		Cluster:        DefaultCluster,
		Wallet:         DefaultWallet,
		Commitment:     DefaultCommitment,
		ConfirmTimeout: DefaultConfirmTimeout,
		Redis:          Redis{Channel: "lp:transactions"},
		Bank: Bank{
			LamportsPerSignature: DefaultLamportsPerSignature,
			MaxBlockhashAge:      DefaultMaxBlockhashAge,
		},
	}
}

// Load reads a YAML config file on top of the defaults. A missing file at the
// default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Cluster == "" {
		return errors.New("cluster must be set")
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("unknown commitment %q", c.Commitment)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm_timeout must be positive, got %s", c.ConfirmTimeout)
	}
	if c.Bank.MaxBlockhashAge <= 0 {
		return fmt.Errorf("max_blockhash_age must be positive, got %d", c.Bank.MaxBlockhashAge)
	}
	return nil
}

func (c *Config) IsLocalnet() bool {
	return c.Cluster == ClusterLocalnet
}

// Endpoint resolves the cluster moniker to an RPC URL.
func (c *Config) Endpoint() string {
	switch c.Cluster {
	case ClusterDevnet:
		return "https://api.devnet.solana.com"
	case ClusterTestnet:
		return "https://api.testnet.solana.com"
	case ClusterMainnet, "mainnet":
		return "https://api.mainnet-beta.solana.com"
	default:
		return c.Cluster
	}
}

func (c *Config) WalletPath() string {
	return ExpandPath(c.Wallet)
}

func (c *Config) LedgerPath() string {
	return ExpandPath(c.Ledger)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
