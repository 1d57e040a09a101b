package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/tokenledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TokenID", id.NewTokenID, "tok_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TokenID", id.NewTokenID, id.ParseTokenID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseTokenID(id.NewEventID().String()); err == nil {
		t.Error("ParseTokenID accepted an evt_ id")
	}
	if _, err := id.ParseEventID(id.NewTokenID().String()); err == nil {
		t.Error("ParseEventID accepted a tok_ id")
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "tok_", "not an id"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("nil ID rendered as %q / %q", i.String(), i.Prefix())
	}

	var restored id.ID
	if err := restored.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil): %v", err)
	}
	if !restored.IsNil() {
		t.Error("expected nil after empty unmarshal")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewTokenID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	if val, _ := nilID.Value(); val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewEventID()
	b := id.NewEventID()
	if a.String() == b.String() {
		t.Fatalf("two consecutive ids are equal: %q", a)
	}
}
