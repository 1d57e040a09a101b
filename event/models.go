// Package event defines the notifications emitted by a token ledger and
// the journal records that persist them.
package event

import (
	"time"

	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// Kind names the two notification shapes.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindApproval Kind = "approval"
)

// Transfer records units moving between accounts. A genesis transfer has
// From set to types.NullAddress.
type Transfer struct {
	From   types.Address `json:"from"`
	To     types.Address `json:"to"`
	Amount types.Amount  `json:"amount"`
}

// Approval records an owner setting a spender's allowance.
type Approval struct {
	Owner   types.Address `json:"owner"`
	Spender types.Address `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}

// Record is one entry of a ledger's journal. Exactly one of Transfer and
// Approval is set, matching Kind.
//
// Caller is the identity that invoked the operation. Delegated marks a
// transfer made through an allowance, in which case Caller is the spender
// whose (From, Caller) allowance was consumed.
type Record struct {
	ID         id.EventID    `json:"id"`
	TokenID    id.TokenID    `json:"token_id"`
	Seq        uint64        `json:"seq"`
	Kind       Kind          `json:"kind"`
	Caller     types.Address `json:"caller"`
	Delegated  bool          `json:"delegated,omitempty"`
	Transfer   *Transfer     `json:"transfer,omitempty"`
	Approval   *Approval     `json:"approval,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Parties returns the two addresses a record involves: (from, to) for a
// transfer and (owner, spender) for an approval.
func (r *Record) Parties() (types.Address, types.Address) {
	switch {
	case r.Transfer != nil:
		return r.Transfer.From, r.Transfer.To
	case r.Approval != nil:
		return r.Approval.Owner, r.Approval.Spender
	default:
		return types.NullAddress, types.NullAddress
	}
}

// Amount returns the quantity carried by the record.
func (r *Record) Amount() types.Amount {
	switch {
	case r.Transfer != nil:
		return r.Transfer.Amount
	case r.Approval != nil:
		return r.Approval.Amount
	default:
		return types.Zero()
	}
}

// Involves reports whether account is one of the record's parties or
// the spender that executed a delegated transfer.
func (r *Record) Involves(account types.Address) bool {
	a, b := r.Parties()
	return a == account || b == account || (r.Delegated && r.Caller == account)
}

// IsGenesis reports whether r is the supply-creating transfer.
func (r *Record) IsGenesis() bool {
	return r.Kind == KindTransfer && r.Transfer != nil && r.Transfer.From.IsNull()
}

// Rejection describes a mutating call that failed its preconditions.
// Rejections are delivered to plugins but never journaled.
type Rejection struct {
	TokenID id.TokenID    `json:"token_id"`
	Op      string        `json:"op"`
	Caller  types.Address `json:"caller"`
	Kind    string        `json:"kind"`
	Reason  string        `json:"reason"`
	Err     error         `json:"-"`
	At      time.Time     `json:"at"`
}
