package extension

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/tokenledger/store/bolt"
	"github.com/xraph/tokenledger/store/memory"
	"github.com/xraph/tokenledger/types"
)

const owner = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{JournalBatchSize: 7})
	if cfg.JournalBatchSize != 7 {
		t.Errorf("JournalBatchSize = %d, want 7", cfg.JournalBatchSize)
	}
	if cfg.JournalFlushInterval != time.Second || cfg.StoreDriver != "memory" || cfg.BoltPath == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Decimals != 0 {
		t.Errorf("Decimals = %d, zero decimals must survive", cfg.Decimals)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Symbol: "YML", JournalBatchSize: 50}
	prog := Config{Symbol: "PRG", Name: "Programmatic", Decimals: 6, JournalBatchSize: 10, DisableStart: true}

	got := mergeConfigurations(yaml, prog)
	tests := []struct {
		name string
		ok   bool
	}{
		{"yaml symbol wins", got.Symbol == "YML"},
		{"programmatic name fills gap", got.Name == "Programmatic"},
		{"programmatic decimals fill gap", got.Decimals == 6},
		{"yaml batch size wins", got.JournalBatchSize == 50},
		{"disable flag carried", got.DisableStart},
		{"defaults applied", got.JournalFlushInterval == time.Second},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s: %+v", tt.name, got)
		}
	}
}

func TestBuildEngineDeploys(t *testing.T) {
	e := New(
		WithToken("Gold", "GLD", 2, "100000"),
		WithOwner(owner),
		WithStore(memory.New()),
		WithJournalBatchSize(10),
	)
	e.config = mergeWithDefaults(e.config)

	eng, err := e.buildEngine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if eng.Symbol() != "GLD" || eng.Decimals() != 2 {
		t.Errorf("engine = %s/%d", eng.Symbol(), eng.Decimals())
	}
	if got := eng.BalanceOf(types.MustParseAddress(owner)); !got.Equal(types.NewAmount(100000)) {
		t.Errorf("owner balance = %s", got)
	}
	if err := e.Health(context.Background()); err != nil {
		t.Errorf("Health = %v", err)
	}
}

func TestBuildEngineReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	first := New()
	first.config = mergeWithDefaults(Config{
		Name: "Gold", Symbol: "GLD", Decimals: 2, TotalSupply: "500", Owner: owner,
		StoreDriver: "bolt", BoltPath: path,
	})
	eng, err := first.buildEngine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	alice := types.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	if _, err := eng.Transfer(ctx, types.MustParseAddress(owner), alice, types.NewAmount(20)); err != nil {
		t.Fatal(err)
	}
	if err := eng.Stop(); err != nil {
		t.Fatal(err)
	}

	s, err := bolt.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	second := New(WithStore(s), WithTokenID(eng.ID().String()))
	second.config = mergeWithDefaults(second.config)
	reopened, err := second.buildEngine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Stop()
	if got := reopened.BalanceOf(alice); !got.Equal(types.NewAmount(20)) {
		t.Errorf("alice balance after reopen = %s", got)
	}
}

func TestBuildEngineErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad owner", Config{Name: "A", Symbol: "A", TotalSupply: "1", Owner: "nope"}},
		{"bad supply", Config{Name: "A", Symbol: "A", TotalSupply: "-1", Owner: owner}},
		{"bad token id", Config{TokenID: "evt_bogus"}},
		{"unknown driver", Config{StoreDriver: "etcd"}},
		{"invalid token", Config{Name: "", Symbol: "A", TotalSupply: "1", Owner: owner}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			e.config = mergeWithDefaults(tt.cfg)
			if _, err := e.buildEngine(context.Background()); err == nil {
				t.Error("buildEngine succeeded, want error")
			}
		})
	}
}
