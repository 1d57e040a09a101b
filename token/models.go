package token

import (
	"time"

	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// Token is the immutable metadata of a deployed ledger.
type Token struct {
	ID          id.TokenID    `json:"id"`
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Decimals    uint8         `json:"decimals"`
	TotalSupply types.Amount  `json:"total_supply"`
	Owner       types.Address `json:"owner"`
	CreatedAt   time.Time     `json:"created_at"`
}
