package mongo

import (
	"testing"

	"github.com/xraph/tokenledger/store/storetest"
)

func TestEventModelConversion(t *testing.T) {
	tok := storetest.NewToken("GDB")
	for _, want := range storetest.Journal(tok) {
		got, err := fromEventModel(toEventModel(want))
		if err != nil {
			t.Fatalf("seq %d: %v", want.Seq, err)
		}
		if got.ID != want.ID || got.TokenID != want.TokenID || got.Seq != want.Seq || got.Kind != want.Kind {
			t.Errorf("seq %d: header = %+v", want.Seq, got)
		}
		if got.Caller != want.Caller || got.Delegated != want.Delegated {
			t.Errorf("seq %d: caller %s delegated %v", want.Seq, got.Caller, got.Delegated)
		}
		gotFrom, gotTo := got.Parties()
		wantFrom, wantTo := want.Parties()
		if gotFrom != wantFrom || gotTo != wantTo || !got.Amount().Equal(want.Amount()) {
			t.Errorf("seq %d: body = %s -> %s %s", want.Seq, gotFrom, gotTo, got.Amount())
		}
	}
}

func TestTokenModelConversion(t *testing.T) {
	want := storetest.NewToken("GDB")
	got, err := fromTokenModel(toTokenModel(want))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || got.Owner != want.Owner || !got.TotalSupply.Equal(want.TotalSupply) || got.Decimals != want.Decimals {
		t.Errorf("token = %+v, want %+v", got, want)
	}
}

func TestRejectsMalformedEvent(t *testing.T) {
	m := toEventModel(storetest.Journal(storetest.NewToken("GDB"))[0])
	m.Kind = "mint"
	if _, err := fromEventModel(m); err == nil {
		t.Error("expected error for unknown kind")
	}
}
