package tokenledger

import (
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// TokenID identifies a deployed token.
type TokenID = id.TokenID

// EventID identifies a journal record.
type EventID = id.EventID

// Re-export common types for convenience so users don't have to import types package.

// Address is re-exported from types package.
type Address = types.Address

// Amount is re-exported from types package.
type Amount = types.Amount

// NullAddress is the all-zero address.
var NullAddress = types.NullAddress

// Re-export constructors
var (
	NewAmount    = types.NewAmount
	ParseAmount  = types.ParseAmount
	ParseUnits   = types.ParseUnits
	ParseAddress = types.ParseAddress
	Zero         = types.Zero
	Sum          = types.Sum
)
