package token

import (
	"context"

	"github.com/xraph/tokenledger/id"
)

type Store interface {
	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, tokenID id.TokenID) (*Token, error)
	ListTokens(ctx context.Context, opts ListOpts) ([]*Token, error)
}

type ListOpts struct {
	Symbol string
	Limit  int
	Offset int
}
