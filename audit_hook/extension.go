// Package audithook bridges ledger notifications to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnInit           = (*Extension)(nil)
	_ plugin.OnShutdown       = (*Extension)(nil)
	_ plugin.OnTransfer       = (*Extension)(nil)
	_ plugin.OnApproval       = (*Extension)(nil)
	_ plugin.OnRejected       = (*Extension)(nil)
	_ plugin.OnJournalFlushed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger notifications to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit implements plugin.OnInit.
func (e *Extension) OnInit(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionLedgerStarted, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "", CategoryLifecycle, nil,
	)
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, ActionLedgerStopped, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "", CategoryLifecycle, nil,
	)
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer. The genesis transfer is audited
// as a token deployment.
func (e *Extension) OnTransfer(ctx context.Context, rec *event.Record) error {
	if rec.Transfer == nil {
		return nil
	}
	t := rec.Transfer

	if rec.IsGenesis() {
		return e.record(ctx, ActionTokenDeployed, SeverityInfo, OutcomeSuccess,
			ResourceToken, rec.TokenID.String(), CategoryLifecycle, nil,
			"owner", t.To.Hex(),
			"total_supply", t.Amount.String(),
		)
	}

	action := ActionTransferExecuted
	if rec.Delegated {
		action = ActionTransferDelegated
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, rec.ID.String(), CategoryTransfer, nil,
		"token_id", rec.TokenID.String(),
		"seq", rec.Seq,
		"caller", rec.Caller.Hex(),
		"from", t.From.Hex(),
		"to", t.To.Hex(),
		"amount", t.Amount.String(),
	)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, rec *event.Record) error {
	if rec.Approval == nil {
		return nil
	}
	a := rec.Approval

	action := ActionAllowanceSet
	if a.Amount.IsZero() {
		action = ActionAllowanceCleared
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceAllowance, rec.ID.String(), CategoryAccess, nil,
		"token_id", rec.TokenID.String(),
		"seq", rec.Seq,
		"owner", a.Owner.Hex(),
		"spender", a.Spender.Hex(),
		"amount", a.Amount.String(),
	)
}

// OnRejected implements plugin.OnRejected.
func (e *Extension) OnRejected(ctx context.Context, rej *event.Rejection) error {
	err := rej.Err
	if err == nil {
		err = errors.New(rej.Reason)
	}
	return e.record(ctx, ActionCallRejected, SeverityWarning, OutcomeFailure,
		ResourceToken, rej.TokenID.String(), CategoryTransfer, err,
		"op", rej.Op,
		"caller", rej.Caller.Hex(),
		"kind", rej.Kind,
	)
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (e *Extension) OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error {
	return e.record(ctx, ActionJournalFlushed, SeverityInfo, OutcomeSuccess,
		ResourceJournal, "", CategoryStorage, nil,
		"count", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
