// Package extension provides the Forge extension adapter for tokenledger.
//
// It implements the forge.Extension interface to integrate a token ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tokenledger" or
// "tokenledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/store/bolt"
	"github.com/xraph/tokenledger/store/memory"
	"github.com/xraph/tokenledger/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tokenledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fungible token ledger with journaled transfers and allowances"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts tokenledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tokenledger.Ledger
	store      store.Store
	ledgerOpts []tokenledger.Option
}

// New creates a new tokenledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *tokenledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration, deploys
// or reopens the token, and registers the ledger in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	eng, err := e.buildEngine(context.Background())
	if err != nil {
		return err
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*tokenledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tokenledger: extension not initialized")
	}

	if !e.config.DisableStart {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tokenledger: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.engine != nil {
		return e.engine.Verify()
	}
	return nil
}

// buildEngine resolves the store and either reopens config.TokenID or
// deploys a new token from config.
func (e *Extension) buildEngine(ctx context.Context) (*tokenledger.Ledger, error) {
	if e.store == nil {
		s, err := openStore(e.config)
		if err != nil {
			return nil, err
		}
		e.store = s
	}

	opts := e.buildLedgerOpts()

	if e.config.TokenID != "" {
		tokenID, err := id.ParseTokenID(e.config.TokenID)
		if err != nil {
			return nil, fmt.Errorf("tokenledger: token_id: %w", err)
		}
		return tokenledger.Open(ctx, e.store, tokenID, opts...)
	}

	owner, err := types.ParseAddress(e.config.Owner)
	if err != nil {
		return nil, fmt.Errorf("tokenledger: owner: %w", err)
	}
	supply, err := types.ParseAmount(e.config.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("tokenledger: total_supply: %w", err)
	}

	opts = append(opts, tokenledger.WithStore(e.store))
	return tokenledger.New(tokenledger.Config{
		Name:        e.config.Name,
		Symbol:      e.config.Symbol,
		Decimals:    e.config.Decimals,
		TotalSupply: supply,
	}, owner, opts...)
}

// buildLedgerOpts constructs tokenledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []tokenledger.Option {
	opts := make([]tokenledger.Option, 0, len(e.ledgerOpts)+1)

	if e.config.JournalBatchSize > 0 || e.config.JournalFlushInterval > 0 {
		batchSize := e.config.JournalBatchSize
		flushInterval := e.config.JournalFlushInterval
		defaults := DefaultConfig()
		if batchSize == 0 {
			batchSize = defaults.JournalBatchSize
		}
		if flushInterval == 0 {
			flushInterval = defaults.JournalFlushInterval
		}
		opts = append(opts, tokenledger.WithJournalConfig(batchSize, flushInterval))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// openStore constructs the store named by cfg.StoreDriver.
func openStore(cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return memory.New(), nil
	case "bolt":
		return bolt.Open(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("tokenledger: unknown store driver %q", cfg.StoreDriver)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tokenledger: configuration is required but not found in config files; " +
				"ensure 'extensions.tokenledger' or 'tokenledger' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tokenledger: configuration loaded",
		forge.F("disable_start", e.config.DisableStart),
		forge.F("token_id", e.config.TokenID),
		forge.F("symbol", e.config.Symbol),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("store_driver", e.config.StoreDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.tokenledger", "tokenledger"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("tokenledger: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("tokenledger: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaults.StoreDriver
	}
	if cfg.BoltPath == "" {
		cfg.BoltPath = defaults.BoltPath
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableStart {
		yamlConfig.DisableStart = true
	}

	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.TokenID, programmaticConfig.TokenID)
	fill(&yamlConfig.Name, programmaticConfig.Name)
	fill(&yamlConfig.Symbol, programmaticConfig.Symbol)
	fill(&yamlConfig.TotalSupply, programmaticConfig.TotalSupply)
	fill(&yamlConfig.Owner, programmaticConfig.Owner)
	fill(&yamlConfig.StoreDriver, programmaticConfig.StoreDriver)
	fill(&yamlConfig.BoltPath, programmaticConfig.BoltPath)

	if yamlConfig.Decimals == 0 && programmaticConfig.Decimals != 0 {
		yamlConfig.Decimals = programmaticConfig.Decimals
	}
	if yamlConfig.JournalBatchSize == 0 && programmaticConfig.JournalBatchSize != 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 && programmaticConfig.JournalFlushInterval != 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}

	return mergeWithDefaults(yamlConfig)
}
