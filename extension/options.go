package extension

import (
	"time"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/plugin"
	"github.com/xraph/tokenledger/store"
)

// Option configures the tokenledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger. It takes precedence over
// Config.StoreDriver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a tokenledger.Option through to the ledger.
func WithLedgerOption(opt tokenledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, tokenledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableStart prevents the journal worker from starting.
func WithDisableStart() Option {
	return func(e *Extension) { e.config.DisableStart = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithToken sets the token to deploy.
func WithToken(name, symbol string, decimals uint8, totalSupply string) Option {
	return func(e *Extension) {
		e.config.Name = name
		e.config.Symbol = symbol
		e.config.Decimals = decimals
		e.config.TotalSupply = totalSupply
	}
}

// WithOwner sets the deployer address.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithTokenID reopens an existing token instead of deploying.
func WithTokenID(tokenID string) Option {
	return func(e *Extension) { e.config.TokenID = tokenID }
}

// WithJournalBatchSize sets the number of entries to buffer before flushing.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}
