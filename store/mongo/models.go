package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

// ==================== Token models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:tokenledger_tokens"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	Name        string    `grove:"name"         bson:"name"`
	Symbol      string    `grove:"symbol"       bson:"symbol"`
	Decimals    int       `grove:"decimals"     bson:"decimals"`
	TotalSupply string    `grove:"total_supply" bson:"total_supply"`
	Owner       string    `grove:"owner"        bson:"owner"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
}

func toTokenModel(t *token.Token) *tokenModel {
	return &tokenModel{
		ID:          t.ID.String(),
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    int(t.Decimals),
		TotalSupply: t.TotalSupply.String(),
		Owner:       t.Owner.Hex(),
		CreatedAt:   t.CreatedAt,
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
	return &token.Token{
		ID:          tokenID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		Decimals:    uint8(m.Decimals), //nolint:gosec // bounded by construction
		TotalSupply: supply,
		Owner:       owner,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// ==================== Event models ====================

type transferModel struct {
	From   string `bson:"from"`
	To     string `bson:"to"`
	Amount string `bson:"amount"`
}

type approvalModel struct {
	Owner   string `bson:"owner"`
	Spender string `bson:"spender"`
	Amount  string `bson:"amount"`
}

type eventModel struct {
	grove.BaseModel `grove:"table:tokenledger_events"`

	ID         string         `grove:"id,pk"       bson:"_id"`
	TokenID    string         `grove:"token_id"    bson:"token_id"`
	Seq        int64          `grove:"seq"         bson:"seq"`
	Kind       string         `grove:"kind"        bson:"kind"`
	Caller     string         `grove:"caller"      bson:"caller"`
	Delegated  bool           `grove:"delegated"   bson:"delegated"`
	Parties    []string       `grove:"parties"     bson:"parties"`
	Transfer   *transferModel `grove:"transfer"    bson:"transfer,omitempty"`
	Approval   *approvalModel `grove:"approval"    bson:"approval,omitempty"`
	OccurredAt time.Time      `grove:"occurred_at" bson:"occurred_at"`
}

func toEventModel(r *event.Record) *eventModel {
	a, b := r.Parties()
	m := &eventModel{
		ID:         r.ID.String(),
		TokenID:    r.TokenID.String(),
		Seq:        int64(r.Seq), //nolint:gosec // sequence numbers stay far below MaxInt64
		Kind:       string(r.Kind),
		Caller:     r.Caller.Hex(),
		Delegated:  r.Delegated,
		Parties:    []string{a.Hex(), b.Hex()},
		OccurredAt: r.OccurredAt,
	}
	if r.Delegated {
		m.Parties = append(m.Parties, r.Caller.Hex())
	}
	if r.Transfer != nil {
		m.Transfer = &transferModel{
			From:   r.Transfer.From.Hex(),
			To:     r.Transfer.To.Hex(),
			Amount: r.Transfer.Amount.String(),
		}
	}
	if r.Approval != nil {
		m.Approval = &approvalModel{
			Owner:   r.Approval.Owner.Hex(),
			Spender: r.Approval.Spender.Hex(),
			Amount:  r.Approval.Amount.String(),
		}
	}
	return m
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

	r := &event.Record{
		ID:         eventID,
		TokenID:    tokenID,
		Seq:        uint64(m.Seq), //nolint:gosec // written from a uint64
		Kind:       event.Kind(m.Kind),
		Caller:     caller,
		Delegated:  m.Delegated,
		OccurredAt: m.OccurredAt,
	}

	switch {
	case r.Kind == event.KindTransfer && m.Transfer != nil:
		t := &event.Transfer{}
		if t.From, err = types.ParseAddress(m.Transfer.From); err != nil {
			return nil, fmt.Errorf("event %s: %w", m.ID, err)
		}
		if t.To, err = types.ParseAddress(m.Transfer.To); err != nil {
			return nil, fmt.Errorf("event %s: %w", m.ID, err)
		}
		if t.Amount, err = types.ParseAmount(m.Transfer.Amount); err != nil {
			return nil, fmt.Errorf("event %s: %w", m.ID, err)
		}
		r.Transfer = t
	case r.Kind == event.KindApproval && m.Approval != nil:
		a := &event.Approval{}
		if a.Owner, err = types.ParseAddress(m.Approval.Owner); err != nil {
			return nil, fmt.Errorf("event %s: %w", m.ID, err)
		}
		if a.Spender, err = types.ParseAddress(m.Approval.Spender); err != nil {
			return nil, fmt.Errorf("event %s: %w", m.ID, err)
		}
		if a.Amount, err = types.ParseAmount(m.Approval.Amount); err != nil {
			return nil, fmt.Errorf("event %s: %w", m.ID, err)
		}
		r.Approval = a
	default:
		return nil, fmt.Errorf("event %s: malformed %q document", m.ID, m.Kind)
	}
	return r, nil
}
