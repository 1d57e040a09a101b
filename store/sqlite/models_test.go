package sqlite

import (
	"testing"
	"time"

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
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 45, 120000000, time.UTC)
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"fixed width", formatTime(want), want},
		{"column default", "2024-03-01 12:30:45", want.Truncate(time.Second)},
		{"rfc3339", "2024-03-01T14:30:45.12+02:00", want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error for malformed timestamp")
	}
}

func TestFormatTimeSortsLexically(t *testing.T) {
	earlier := time.Date(2024, 3, 1, 12, 0, 0, 900000000, time.UTC)
	later := earlier.Add(200 * time.Millisecond)
	if formatTime(earlier) >= formatTime(later) {
		t.Errorf("%s >= %s", formatTime(earlier), formatTime(later))
	}
}

func TestRejectsMalformedEvent(t *testing.T) {
	m := toEventModel(storetest.Journal(storetest.NewToken("GDB"))[0])
	m.Kind = "mint"
	if _, err := fromEventModel(m); err == nil {
		t.Error("expected error for unknown kind")
	}
}
