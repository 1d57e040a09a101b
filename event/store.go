package event

import (
	"context"

	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

type Store interface {
	// AppendEvents persists records. Records whose (token, seq) already
	// exist are skipped, so a retried batch is harmless.
	AppendEvents(ctx context.Context, tokenID id.TokenID, records []*Record) error
	ListEvents(ctx context.Context, tokenID id.TokenID, opts ListOpts) ([]*Record, error)
	LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error)
}

// ListOpts filters a journal listing. Results are ordered by Seq.
type ListOpts struct {
	AfterSeq uint64
	Limit    int
	Kind     Kind
	Account  types.Address // NullAddress matches every record; see Record.Involves
}

// Match reports whether r passes the filter, ignoring Limit.
func (o ListOpts) Match(r *Record) bool {
	if r.Seq <= o.AfterSeq {
		return false
	}
	if o.Kind != "" && r.Kind != o.Kind {
		return false
	}
	if !o.Account.IsNull() && !r.Involves(o.Account) {
		return false
	}
	return true
}

// Filter applies opts to records already sorted by Seq.
func Filter(records []*Record, opts ListOpts) []*Record {
	result := make([]*Record, 0)
	for _, r := range records {
		if !opts.Match(r) {
			continue
		}
		result = append(result, r)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result
}
