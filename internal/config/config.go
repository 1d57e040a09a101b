// Package config loads tokenledger binary settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/xraph/tokenledger/types"
)

// Config holds settings read from TOKENLEDGER_* variables.
type Config struct {
	Addr      string `env:"TOKENLEDGER_ADDR" envDefault:":8080"`
	LogLevel  string `env:"TOKENLEDGER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TOKENLEDGER_LOG_FORMAT" envDefault:"text"`

	StoreDriver string `env:"TOKENLEDGER_STORE" envDefault:"memory"`
	BoltPath    string `env:"TOKENLEDGER_BOLT_PATH" envDefault:"tokenledger.db"`

	// TokenID reopens a persisted token. When empty a new token is deployed.
	TokenID     string `env:"TOKENLEDGER_TOKEN_ID"`
	Name        string `env:"TOKENLEDGER_TOKEN_NAME" envDefault:"GDB Token"`
	Symbol      string `env:"TOKENLEDGER_TOKEN_SYMBOL" envDefault:"GDB"`
	Decimals    uint8  `env:"TOKENLEDGER_TOKEN_DECIMALS" envDefault:"18"`
	TotalSupply string `env:"TOKENLEDGER_TOTAL_SUPPLY" envDefault:"1000"`
	Deployer    string `env:"TOKENLEDGER_DEPLOYER"`

	JournalBatchSize     int           `env:"TOKENLEDGER_JOURNAL_BATCH_SIZE" envDefault:"100"`
	JournalFlushInterval time.Duration `env:"TOKENLEDGER_JOURNAL_FLUSH_INTERVAL" envDefault:"1s"`

	RateLimit float64 `env:"TOKENLEDGER_RATE_LIMIT" envDefault:"50"`
	RateBurst int     `env:"TOKENLEDGER_RATE_BURST" envDefault:"100"`

	KafkaBrokers []string `env:"TOKENLEDGER_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"TOKENLEDGER_KAFKA_TOPIC" envDefault:"tokenledger.notifications"`
}

// Load reads .env style files, when present, and then the environment.
// Variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks settings that cannot be checked by the ledger itself.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory":
	case "bolt":
		if c.BoltPath == "" {
			return errors.New("config: TOKENLEDGER_BOLT_PATH is required for the bolt store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.StoreDriver)
	}
	if c.Deployer != "" {
		if _, err := types.ParseAddress(c.Deployer); err != nil {
			return fmt.Errorf("config: TOKENLEDGER_DEPLOYER: %w", err)
		}
	}
	if c.JournalBatchSize <= 0 {
		return errors.New("config: TOKENLEDGER_JOURNAL_BATCH_SIZE must be positive")
	}
	if c.JournalFlushInterval <= 0 {
		return errors.New("config: TOKENLEDGER_JOURNAL_FLUSH_INTERVAL must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("config: rate limit and burst must be positive")
	}
	return nil
}

// DeployerAddress parses Deployer. It fails when no deployer is set.
func (c *Config) DeployerAddress() (types.Address, error) {
	if c.Deployer == "" {
		return types.NullAddress, errors.New("config: TOKENLEDGER_DEPLOYER is required to deploy a token")
	}
	return types.ParseAddress(c.Deployer)
}

// Supply converts TotalSupply from display units to base units.
func (c *Config) Supply() (types.Amount, error) {
	return types.ParseUnits(c.TotalSupply, c.Decimals)
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
