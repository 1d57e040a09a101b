package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/plugin"
)

type recorder struct {
	name string

	mu        sync.Mutex
	transfers []uint64
	approvals []uint64
	rejected  []string
	flushed   []int
	fail      bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnTransfer(_ context.Context, rec *event.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = append(r.transfers, rec.Seq)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) OnApproval(_ context.Context, rec *event.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals = append(r.approvals, rec.Seq)
	return nil
}

func (r *recorder) OnRejected(_ context.Context, rej *event.Rejection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, rej.Op)
	return nil
}

func (r *recorder) OnJournalFlushed(_ context.Context, count int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed = append(r.flushed, count)
	return nil
}

type nameOnly struct{ name string }

func (n nameOnly) Name() string { return n.name }

type slowInit struct{}

func (slowInit) Name() string { return "slow" }

func (slowInit) OnInit(ctx context.Context, _ interface{}) error {
	<-ctx.Done()
	return ctx.Err()
}

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterDuplicate(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(nameOnly{"a"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(nameOnly{"a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Error("Get returned the wrong plugin")
	}
	if len(r.List()) != 1 {
		t.Errorf("List len = %d, want 1", len(r.List()))
	}
}

func TestEmitRoutesByKind(t *testing.T) {
	r := quietRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}
	// A plugin with no hooks must be skipped silently.
	if err := r.Register(nameOnly{"bare"}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	r.EmitRecord(ctx, &event.Record{Seq: 1, Kind: event.KindTransfer})
	r.EmitRecord(ctx, &event.Record{Seq: 2, Kind: event.KindApproval})
	r.EmitRecord(ctx, &event.Record{Seq: 3, Kind: event.KindTransfer})
	r.EmitRejected(ctx, &event.Rejection{Op: "transfer"})
	r.EmitJournalFlushed(ctx, 3, time.Millisecond)

	if got := rec.transfers; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("transfers = %v, want [1 3]", got)
	}
	if got := rec.approvals; len(got) != 1 || got[0] != 2 {
		t.Errorf("approvals = %v, want [2]", got)
	}
	if len(rec.rejected) != 1 || rec.rejected[0] != "transfer" {
		t.Errorf("rejected = %v", rec.rejected)
	}
	if len(rec.flushed) != 1 || rec.flushed[0] != 3 {
		t.Errorf("flushed = %v", rec.flushed)
	}
}

func TestFailingPluginDoesNotStopDispatch(t *testing.T) {
	r := quietRegistry()
	bad := &recorder{name: "bad", fail: true}
	good := &recorder{name: "good"}
	_ = r.Register(bad)
	_ = r.Register(good)

	r.EmitTransfer(context.Background(), &event.Record{Seq: 7, Kind: event.KindTransfer})

	if len(bad.transfers) != 1 || len(good.transfers) != 1 {
		t.Fatalf("bad=%v good=%v, both should have been called", bad.transfers, good.transfers)
	}
}

func TestHookTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slowInit{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	r.EmitInit(ctx, nil)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("EmitInit blocked for %v", elapsed)
	}
}
