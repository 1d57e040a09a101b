package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

// timeLayout is fixed-width UTC so that TEXT ordering matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sqliteLayout is what datetime('now') column defaults produce.
const sqliteLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(sqliteLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ==================== Token models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:tokenledger_tokens"`

	ID          string `grove:"id,pk"`
	Name        string `grove:"name"`
	Symbol      string `grove:"symbol"`
	Decimals    int    `grove:"decimals"`
	TotalSupply string `grove:"total_supply"`
	Owner       string `grove:"owner"`
	CreatedAt   string `grove:"created_at"`
}

func toTokenModel(t *token.Token) *tokenModel {
	return &tokenModel{
		ID:          t.ID.String(),
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    int(t.Decimals),
		TotalSupply: t.TotalSupply.String(),
		Owner:       t.Owner.Hex(),
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

func fromTokenModel(m *tokenModel) (*token.Token, error) {
	tokenID, err := id.ParseTokenID(m.ID)
	if err != nil {
		return nil, err
	}
	supply, err := types.ParseAmount(m.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", m.ID, err)
	}
	owner, err := types.ParseAddress(m.Owner)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", m.ID, err)
	}
	createdAt, err := parseTime(m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", m.ID, err)
	}
	return &token.Token{
		ID:          tokenID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		Decimals:    uint8(m.Decimals), //nolint:gosec // bounded by construction
		TotalSupply: supply,
		Owner:       owner,
		CreatedAt:   createdAt,
	}, nil
}

// ==================== Event models ====================

// eventModel flattens a record: for approvals from_address is the owner
// and to_address the spender.
type eventModel struct {
	grove.BaseModel `grove:"table:tokenledger_events"`

	ID          string `grove:"id,pk"`
	TokenID     string `grove:"token_id"`
	Seq         int64  `grove:"seq"`
	Kind        string `grove:"kind"`
	Caller      string `grove:"caller"`
	Delegated   bool   `grove:"delegated"`
	FromAddress string `grove:"from_address"`
	ToAddress   string `grove:"to_address"`
	Amount      string `grove:"amount"`
	OccurredAt  string `grove:"occurred_at"`
}

func toEventModel(r *event.Record) *eventModel {
	from, to := r.Parties()
	return &eventModel{
		ID:          r.ID.String(),
		TokenID:     r.TokenID.String(),
		Seq:         int64(r.Seq), //nolint:gosec // sequence numbers stay far below MaxInt64
		Kind:        string(r.Kind),
		Caller:      r.Caller.Hex(),
		Delegated:   r.Delegated,
		FromAddress: from.Hex(),
		ToAddress:   to.Hex(),
		Amount:      r.Amount().String(),
		OccurredAt:  formatTime(r.OccurredAt),
	}
}

func fromEventModel(m *eventModel) (*event.Record, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}
	caller, err := types.ParseAddress(m.Caller)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", m.ID, err)
	}
	from, err := types.ParseAddress(m.FromAddress)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", m.ID, err)
	}
	to, err := types.ParseAddress(m.ToAddress)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", m.ID, err)
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", m.ID, err)
	}
	occurredAt, err := parseTime(m.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", m.ID, err)
	}

	r := &event.Record{
		ID:         eventID,
		TokenID:    tokenID,
		Seq:        uint64(m.Seq), //nolint:gosec // written from a uint64
		Kind:       event.Kind(m.Kind),
		Caller:     caller,
		Delegated:  m.Delegated,
		OccurredAt: occurredAt,
	}
	switch r.Kind {
	case event.KindTransfer:
		r.Transfer = &event.Transfer{From: from, To: to, Amount: amount}
	case event.KindApproval:
		r.Approval = &event.Approval{Owner: from, Spender: to, Amount: amount}
	default:
		return nil, fmt.Errorf("event %s: unknown kind %q", m.ID, m.Kind)
	}
	return r, nil
}
