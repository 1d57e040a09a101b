package extension

import "time"

// Config holds the tokenledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tokenledger" or "tokenledger" keys).
type Config struct {
	// DisableStart prevents the extension from starting the journal worker.
	// The ledger still answers queries and mutations in memory.
	DisableStart bool `json:"disable_start" mapstructure:"disable_start" yaml:"disable_start"`

	// TokenID reopens an existing token from the store instead of deploying
	// a new one.
	TokenID string `json:"token_id" mapstructure:"token_id" yaml:"token_id"`

	// Name, Symbol, Decimals and TotalSupply describe the token to deploy
	// when TokenID is empty. TotalSupply is in base units.
	Name        string `json:"name" mapstructure:"name" yaml:"name"`
	Symbol      string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`
	Decimals    uint8  `json:"decimals" mapstructure:"decimals" yaml:"decimals"`
	TotalSupply string `json:"total_supply" mapstructure:"total_supply" yaml:"total_supply"`

	// Owner is the deployer address credited with the total supply.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// JournalBatchSize is the number of journal entries to buffer before
	// flushing to the store (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal is flushed even if
	// the batch size has not been reached (default: 1s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// StoreDriver selects the backend when no store is set programmatically:
	// "memory" (default) or "bolt".
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// BoltPath is the database file used by the bolt driver.
	BoltPath string `json:"bolt_path" mapstructure:"bolt_path" yaml:"bolt_path"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		JournalBatchSize:     100,
		JournalFlushInterval: time.Second,
		StoreDriver:          "memory",
		BoltPath:             "tokenledger.db",
	}
}
