package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/store/bolt"
	"github.com/xraph/tokenledger/store/storetest"
)

func openStore(t *testing.T, path string) *bolt.Store {
	t.Helper()
	s, err := bolt.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openStore(t, filepath.Join(t.TempDir(), "ledger.db")))
}

func TestReopenKeepsJournal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s := openStore(t, path)
	tok := storetest.NewToken("GDB")
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEvents(ctx, tok.ID, storetest.Journal(tok)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s = openStore(t, path)
	defer s.Close()

	got, err := s.GetToken(ctx, tok.ID)
	if err != nil || got.Symbol != "GDB" {
		t.Fatalf("GetToken after reopen = %+v, %v", got, err)
	}
	records, err := s.ListEvents(ctx, tok.ID, event.ListOpts{})
	if err != nil || len(records) != 3 {
		t.Fatalf("ListEvents after reopen = %d, %v", len(records), err)
	}
	if !records[1].Transfer.Amount.Equal(storetest.Journal(tok)[1].Transfer.Amount) {
		t.Errorf("amount = %s", records[1].Transfer.Amount)
	}
}
