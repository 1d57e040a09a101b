// Package storetest holds behaviour checks shared by every store.Store
// implementation. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

var (
	Owner   = types.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	Alice   = types.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	Spender = types.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

// NewToken returns token metadata with a fresh ID.
func NewToken(symbol string) *token.Token {
	return &token.Token{
		ID:          id.NewTokenID(),
		Name:        symbol + " Token",
		Symbol:      symbol,
		Decimals:    18,
		TotalSupply: types.MustParseAmount("1000000000000000000000"),
		Owner:       Owner,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Journal returns a three-record journal for t: genesis, a transfer to
// Alice and an approval for Spender.
func Journal(t *token.Token) []*event.Record {
	at := t.CreatedAt
	return []*event.Record{
		{
			ID: id.NewEventID(), TokenID: t.ID, Seq: 1, Kind: event.KindTransfer, Caller: t.Owner, OccurredAt: at,
			Transfer: &event.Transfer{From: types.NullAddress, To: t.Owner, Amount: t.TotalSupply},
		},
		{
			ID: id.NewEventID(), TokenID: t.ID, Seq: 2, Kind: event.KindTransfer, Caller: Spender, Delegated: true, OccurredAt: at,
			Transfer: &event.Transfer{From: t.Owner, To: Alice, Amount: types.NewAmount(10)},
		},
		{
			ID: id.NewEventID(), TokenID: t.ID, Seq: 3, Kind: event.KindApproval, Caller: t.Owner, OccurredAt: at,
			Approval: &event.Approval{Owner: t.Owner, Spender: Spender, Amount: types.NewAmount(5)},
		},
	}
}

// Run exercises s. The store must be empty and migrated; Run closes it.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	tok := NewToken("GDB")
	other := NewToken("XYZ")

	t.Run("CreateToken", func(t *testing.T) {
		if err := s.CreateToken(ctx, tok); err != nil {
			t.Fatalf("CreateToken: %v", err)
		}
		if err := s.CreateToken(ctx, other); err != nil {
			t.Fatalf("CreateToken(other): %v", err)
		}
		if err := s.CreateToken(ctx, tok); !errors.Is(err, tokenledger.ErrAlreadyExists) {
			t.Errorf("duplicate CreateToken = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("GetToken", func(t *testing.T) {
		got, err := s.GetToken(ctx, tok.ID)
		if err != nil {
			t.Fatalf("GetToken: %v", err)
		}
		if got.ID != tok.ID || got.Name != tok.Name || got.Symbol != tok.Symbol || got.Decimals != tok.Decimals {
			t.Errorf("GetToken = %+v, want %+v", got, tok)
		}
		if !got.TotalSupply.Equal(tok.TotalSupply) || got.Owner != tok.Owner {
			t.Errorf("supply/owner = %s/%s", got.TotalSupply, got.Owner)
		}
		if !got.CreatedAt.Equal(tok.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tok.CreatedAt)
		}

		if _, err := s.GetToken(ctx, id.NewTokenID()); !errors.Is(err, tokenledger.ErrTokenNotFound) {
			t.Errorf("GetToken(unknown) = %v", err)
		}
	})

	t.Run("ListTokens", func(t *testing.T) {
		all, err := s.ListTokens(ctx, token.ListOpts{})
		if err != nil || len(all) != 2 {
			t.Fatalf("ListTokens = %d, %v", len(all), err)
		}
		bySymbol, err := s.ListTokens(ctx, token.ListOpts{Symbol: "XYZ"})
		if err != nil || len(bySymbol) != 1 || bySymbol[0].ID != other.ID {
			t.Errorf("ListTokens(XYZ) = %+v, %v", bySymbol, err)
		}
		page, err := s.ListTokens(ctx, token.ListOpts{Limit: 1, Offset: 1})
		if err != nil || len(page) != 1 {
			t.Errorf("ListTokens(page) = %d, %v", len(page), err)
		}
	})

	t.Run("AppendEvents", func(t *testing.T) {
		records := Journal(tok)
		if err := s.AppendEvents(ctx, tok.ID, records[:2]); err != nil {
			t.Fatalf("AppendEvents: %v", err)
		}
		// Retrying an overlapping batch is harmless.
		if err := s.AppendEvents(ctx, tok.ID, records); err != nil {
			t.Fatalf("AppendEvents(retry): %v", err)
		}
		seq, err := s.LastSequence(ctx, tok.ID)
		if err != nil || seq != 3 {
			t.Errorf("LastSequence = %d, %v", seq, err)
		}
		seq, err = s.LastSequence(ctx, other.ID)
		if err != nil || seq != 0 {
			t.Errorf("LastSequence(empty) = %d, %v", seq, err)
		}
	})

	t.Run("ListEvents", func(t *testing.T) {
		got, err := s.ListEvents(ctx, tok.ID, event.ListOpts{})
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("ListEvents len = %d, want 3", len(got))
		}
		for i, r := range got {
			if r.Seq != uint64(i+1) || r.TokenID != tok.ID {
				t.Errorf("records[%d] = seq %d token %s", i, r.Seq, r.TokenID)
			}
		}
		if !got[0].IsGenesis() || !got[0].Transfer.Amount.Equal(tok.TotalSupply) {
			t.Errorf("genesis = %+v", got[0].Transfer)
		}
		if !got[1].Delegated || got[1].Caller != Spender || got[1].Transfer.To != Alice {
			t.Errorf("delegated record = %+v", got[1])
		}
		if got[2].Kind != event.KindApproval || got[2].Approval == nil || got[2].Approval.Spender != Spender {
			t.Errorf("approval record = %+v", got[2])
		}

		after, err := s.ListEvents(ctx, tok.ID, event.ListOpts{AfterSeq: 1, Limit: 1})
		if err != nil || len(after) != 1 || after[0].Seq != 2 {
			t.Errorf("ListEvents(after 1, limit 1) = %+v, %v", after, err)
		}
		approvals, err := s.ListEvents(ctx, tok.ID, event.ListOpts{Kind: event.KindApproval})
		if err != nil || len(approvals) != 1 || approvals[0].Seq != 3 {
			t.Errorf("ListEvents(approval) = %+v, %v", approvals, err)
		}
		alice, err := s.ListEvents(ctx, tok.ID, event.ListOpts{Account: Alice})
		if err != nil || len(alice) != 1 || alice[0].Seq != 2 {
			t.Errorf("ListEvents(alice) = %+v, %v", alice, err)
		}
		spent, err := s.ListEvents(ctx, tok.ID, event.ListOpts{Account: Spender})
		if err != nil || len(spent) != 2 || spent[0].Seq != 2 || spent[1].Seq != 3 {
			t.Errorf("ListEvents(spender) = %+v, %v", spent, err)
		}

		if _, err := s.ListEvents(ctx, id.NewTokenID(), event.ListOpts{}); !errors.Is(err, tokenledger.ErrTokenNotFound) {
			t.Errorf("ListEvents(unknown) = %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := s.Ping(ctx); !errors.Is(err, tokenledger.ErrStoreClosed) {
			t.Errorf("Ping after Close = %v", err)
		}
	})
}
