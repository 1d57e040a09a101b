package store

import (
	"context"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// Store is the unified storage interface for token metadata and journals.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Token methods
	CreateToken(ctx context.Context, t *token.Token) error
	GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error)
	ListTokens(ctx context.Context, opts token.ListOpts) ([]*token.Token, error)

	// Journal methods
	AppendEvents(ctx context.Context, tokenID id.TokenID, records []*event.Record) error
	ListEvents(ctx context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Record, error)
	LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ token.Store = (Store)(nil)
	_ event.Store = (Store)(nil)
)
