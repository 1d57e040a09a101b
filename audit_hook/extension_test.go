package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tokenledger"
	audithook "github.com/xraph/tokenledger/audit_hook"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

var (
	owner   = types.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	alice   = types.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	spender = types.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

type capture struct {
	events []*audithook.AuditEvent
	err    error
}

func (c *capture) Record(_ context.Context, evt *audithook.AuditEvent) error {
	c.events = append(c.events, evt)
	return c.err
}

func (c *capture) actions() []string {
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

func transfer(seq uint64, from, to types.Address, amount uint64, delegated bool) *event.Record {
	return &event.Record{
		ID: id.NewEventID(), TokenID: id.NewTokenID(), Seq: seq, Kind: event.KindTransfer,
		Caller: from, Delegated: delegated,
		Transfer: &event.Transfer{From: from, To: to, Amount: types.NewAmount(amount)},
	}
}

func approval(amount uint64) *event.Record {
	return &event.Record{
		ID: id.NewEventID(), TokenID: id.NewTokenID(), Seq: 3, Kind: event.KindApproval, Caller: owner,
		Approval: &event.Approval{Owner: owner, Spender: spender, Amount: types.NewAmount(amount)},
	}
}

func TestExtensionActions(t *testing.T) {
	ctx := context.Background()
	rec := &capture{}
	ext := audithook.New(rec, audithook.WithLogger(slog.New(slog.DiscardHandler)))

	steps := []func() error{
		func() error { return ext.OnInit(ctx, nil) },
		func() error { return ext.OnTransfer(ctx, transfer(1, types.NullAddress, owner, 1000, false)) },
		func() error { return ext.OnTransfer(ctx, transfer(2, owner, alice, 10, false)) },
		func() error { return ext.OnTransfer(ctx, transfer(3, owner, alice, 5, true)) },
		func() error { return ext.OnApproval(ctx, approval(7)) },
		func() error { return ext.OnApproval(ctx, approval(0)) },
		func() error { return ext.OnJournalFlushed(ctx, 5, 3*time.Millisecond) },
		func() error { return ext.OnShutdown(ctx) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := []string{
		audithook.ActionLedgerStarted,
		audithook.ActionTokenDeployed,
		audithook.ActionTransferExecuted,
		audithook.ActionTransferDelegated,
		audithook.ActionAllowanceSet,
		audithook.ActionAllowanceCleared,
		audithook.ActionJournalFlushed,
		audithook.ActionLedgerStopped,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	deployed := rec.events[1]
	if deployed.Metadata["total_supply"] != "1000" || deployed.Metadata["owner"] != owner.Hex() {
		t.Errorf("deployment metadata = %v", deployed.Metadata)
	}
	moved := rec.events[2]
	if moved.Metadata["to"] != alice.Hex() || moved.Metadata["amount"] != "10" {
		t.Errorf("transfer metadata = %v", moved.Metadata)
	}
}

func TestExtensionRejected(t *testing.T) {
	rec := &capture{}
	ext := audithook.New(rec)

	rej := &event.Rejection{
		TokenID: id.NewTokenID(),
		Op:      "transfer",
		Caller:  alice,
		Kind:    tokenledger.KindInsufficientBalance.String(),
		Reason:  "balance too low",
		Err:     tokenledger.ErrInsufficientBalance,
	}
	if err := ext.OnRejected(context.Background(), rej); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events = %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Outcome != audithook.OutcomeFailure || evt.Severity != audithook.SeverityWarning {
		t.Errorf("outcome/severity = %s/%s", evt.Outcome, evt.Severity)
	}
	if evt.Reason != tokenledger.ErrInsufficientBalance.Error() {
		t.Errorf("reason = %q", evt.Reason)
	}
	if evt.Metadata["kind"] != "insufficient_balance" || evt.Metadata["op"] != "transfer" {
		t.Errorf("metadata = %v", evt.Metadata)
	}
}

func TestExtensionActionFilters(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"all", func(*audithook.Extension) {}, 3},
		{"enabled", audithook.WithEnabledActions(audithook.ActionAllowanceSet), 1},
		{"disabled", audithook.WithDisabledActions(audithook.ActionJournalFlushed), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &capture{}
			ext := audithook.New(rec, tt.opt)
			_ = ext.OnTransfer(ctx, transfer(2, owner, alice, 1, false))
			_ = ext.OnApproval(ctx, approval(1))
			_ = ext.OnJournalFlushed(ctx, 2, time.Millisecond)
			if len(rec.events) != tt.want {
				t.Errorf("recorded %d events (%v), want %d", len(rec.events), rec.actions(), tt.want)
			}
		})
	}
}

func TestExtensionSwallowsRecorderErrors(t *testing.T) {
	rec := &capture{err: errors.New("backend down")}
	ext := audithook.New(rec, audithook.WithLogger(slog.New(slog.DiscardHandler)))
	if err := ext.OnApproval(context.Background(), approval(1)); err != nil {
		t.Errorf("OnApproval = %v, want nil", err)
	}
}

func TestRecorderFunc(t *testing.T) {
	var got string
	r := audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
		got = evt.Action
		return nil
	})
	_ = audithook.New(r).OnShutdown(context.Background())
	if got != audithook.ActionLedgerStopped {
		t.Errorf("action = %q", got)
	}
}
