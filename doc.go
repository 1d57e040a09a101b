// Package tokenledger provides a fixed-supply fungible token ledger for Go
// applications.
//
// A Ledger is designed as a library, not a service. It keeps every balance
// and allowance in memory behind a single lock, so the balance checks and
// the mutations they guard are atomic with respect to each other. It
// provides:
//
//   - Fixed supply minted once to the deployer, never minted or burned after
//   - Direct transfers and allowance-based delegated transfers
//   - Notifications returned as values from every successful mutation
//   - A sequenced journal flushed in the background to a pluggable store
//   - Replay of a persisted journal back into a live ledger
//   - Plugin hooks for audit trails, metrics and event streaming
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/tokenledger"
//	    "github.com/xraph/tokenledger/store/memory"
//	    "github.com/xraph/tokenledger/types"
//	)
//
//	supply, _ := types.ParseUnits("1000", 18)
//	l, err := tokenledger.New(tokenledger.Config{
//	    Name:        "Example Token",
//	    Symbol:      "EXT",
//	    Decimals:    18,
//	    TotalSupply: supply,
//	}, deployer, tokenledger.WithStore(memory.New()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	n, err := l.Transfer(ctx, deployer, alice, types.NewAmount(100))
//
// # Errors
//
// Rejected calls return an *Error whose Kind is one of
// KindInvalidConstruction, KindNullDestination, KindInsufficientBalance or
// KindInsufficientAllowance. Each unwraps to a sentinel, so
// errors.Is(err, tokenledger.ErrInsufficientBalance) works. A rejected call
// leaves the ledger unchanged.
//
// # Journal
//
// Every successful mutation, including the genesis credit made by New, is
// appended to a journal with a dense sequence number starting at 1. Start
// launches a worker that writes the journal to the configured store and
// then hands each record to plugins in sequence order. Open replays a
// persisted journal, re-checking every step.
//
// # Amounts and addresses
//
// Amounts are non-negative integers of any size in the token's smallest
// unit. Addresses are 20-byte account identifiers rendered with an EIP-55
// checksum; the all-zero NullAddress is never a valid destination.
package tokenledger
