package tokenledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// Holding is one account's balance.
type Holding struct {
	Account types.Address `json:"account"`
	Balance types.Amount  `json:"balance"`
}

// Holders returns every account that has held units, largest balance
// first, ties broken by address.
func (l *Ledger) Holders() []Holding {
	l.mu.RLock()
	result := make([]Holding, 0, len(l.balances))
	for acct, bal := range l.balances {
		result = append(result, Holding{Account: acct, Balance: bal})
	}
	l.mu.RUnlock()

	sortHoldings(result)
	return result
}

// AllowanceEntry is one non-zero allowance.
type AllowanceEntry struct {
	Owner   types.Address `json:"owner"`
	Spender types.Address `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}

// Snapshot is a consistent copy of a ledger's state at Seq.
type Snapshot struct {
	TokenID    id.TokenID       `json:"token_id"`
	Seq        uint64           `json:"seq"`
	Holdings   []Holding        `json:"holdings"`
	Allowances []AllowanceEntry `json:"allowances"`
}

// Snapshot copies balances and allowances under a single read lock.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	snap := &Snapshot{
		TokenID:    l.meta.ID,
		Seq:        l.seq,
		Holdings:   make([]Holding, 0, len(l.balances)),
		Allowances: make([]AllowanceEntry, 0, len(l.allowances)),
	}
	for acct, bal := range l.balances {
		snap.Holdings = append(snap.Holdings, Holding{Account: acct, Balance: bal})
	}
	for key, amt := range l.allowances {
		snap.Allowances = append(snap.Allowances, AllowanceEntry{Owner: key.owner, Spender: key.spender, Amount: amt})
	}
	l.mu.RUnlock()

	sortHoldings(snap.Holdings)
	sortAllowances(snap.Allowances)
	return snap
}

// Verify checks that the balances add up to the total supply.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	sum := types.Zero()
	for _, bal := range l.balances {
		sum = sum.Add(bal)
	}
	l.mu.RUnlock()

	if !sum.Equal(l.meta.TotalSupply) {
		return fmt.Errorf("tokenledger: balances sum to %s, total supply is %s", sum, l.meta.TotalSupply)
	}
	return nil
}

func sortHoldings(h []Holding) {
	sort.Slice(h, func(i, j int) bool {
		if c := h[i].Balance.Cmp(h[j].Balance); c != 0 {
			return c > 0
		}
		return bytes.Compare(h[i].Account[:], h[j].Account[:]) < 0
	})
}

func sortAllowances(a []AllowanceEntry) {
	sort.Slice(a, func(i, j int) bool {
		if c := bytes.Compare(a[i].Owner[:], a[j].Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a[i].Spender[:], a[j].Spender[:]) < 0
	})
}
