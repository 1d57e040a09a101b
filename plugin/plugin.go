// Package plugin provides an extensible plugin system for tokenledger.
// Plugins hook into ledger lifecycle and journal events. Hooks run on the
// journal flush worker, never on the caller's goroutine.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tokenledger/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *tokenledger.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for every journaled transfer, including genesis.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, rec *event.Record) error
}

// OnApproval is called for every journaled approval.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, rec *event.Record) error
}

// OnRejected is called when a mutating call fails its preconditions.
type OnRejected interface {
	Plugin
	OnRejected(ctx context.Context, rej *event.Rejection) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed is called after a batch of records reaches the store.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}
