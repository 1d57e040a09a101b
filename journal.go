package tokenledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// journalEntry is one pending item: a record to persist and announce, or
// a rejection to announce only.
type journalEntry struct {
	record    *event.Record
	rejection *event.Rejection
}

// journaling reports whether pending entries have anywhere to go.
func (l *Ledger) journaling() bool {
	return l.store != nil || l.plugins.Count() > 0
}

// appendRecord assigns the next sequence number and queues rec.
// Requires l.mu held for writing, or exclusive access during construction.
func (l *Ledger) appendRecord(rec *event.Record) {
	l.seq++
	rec.ID = id.NewEventID()
	rec.TokenID = l.meta.ID
	rec.Seq = l.seq
	rec.OccurredAt = l.clock().UTC()

	if !l.journaling() {
		return
	}
	l.pending = append(l.pending, journalEntry{record: rec})
	l.signalFlush()
}

// reject logs a failed call and queues it for plugins.
// Requires l.mu held for writing.
func (l *Ledger) reject(ctx context.Context, op string, caller types.Address, err error) {
	kind := KindOf(err)
	l.logger.DebugContext(ctx, "ledger call rejected",
		"op", op,
		"kind", kind.String(),
		"caller", caller.String(),
		"error", err,
	)

	if l.plugins.Count() == 0 {
		return
	}
	rej := &event.Rejection{
		TokenID: l.meta.ID,
		Op:      op,
		Caller:  caller,
		Kind:    kind.String(),
		Reason:  err.Error(),
		Err:     err,
		At:      l.clock().UTC(),
	}
	l.pending = append(l.pending, journalEntry{rejection: rej})
	l.signalFlush()
}

func (l *Ledger) signalFlush() {
	if len(l.pending) < l.journalBatchSize {
		return
	}
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// PendingCount returns the number of journal entries not yet flushed.
func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start migrates the store, persists the token metadata and begins the
// journal flush worker.
func (l *Ledger) Start(ctx context.Context) error {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()

	if l.started {
		return ErrAlreadyStarted
	}

	if l.store != nil {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
		l.flushMu.Lock()
		err := l.persistToken(ctx)
		l.flushMu.Unlock()
		if err != nil {
			return err
		}
	}

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	l.started = true
	l.wg.Add(1)
	go l.journalFlushWorker(ctx)

	l.logger.Info("ledger started",
		"token_id", l.meta.ID.String(),
		"batch_size", l.journalBatchSize,
		"flush_interval", l.journalFlushInterval,
		"persistent", l.store != nil,
	)

	return nil
}

// Stop flushes the journal, shuts plugins down and closes the store.
// Calling Stop more than once is a no-op.
func (l *Ledger) Stop() error {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()

	if l.stopped {
		return nil
	}
	l.stopped = true

	ctx := context.Background()
	if l.started {
		close(l.stopChan)
		l.wg.Wait()
	} else if _, err := l.flushJournal(ctx); err != nil {
		l.logger.Error("final journal flush failed", "error", err)
	}

	l.plugins.EmitShutdown(ctx)

	l.logger.Info("ledger stopped",
		"token_id", l.meta.ID.String(),
		"pending", l.PendingCount(),
	)

	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Flush synchronously drains the journal and returns the number of
// records persisted.
func (l *Ledger) Flush(ctx context.Context) (int, error) {
	return l.flushJournal(ctx)
}

// Events flushes the journal and lists the persisted records.
func (l *Ledger) Events(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	if l.store == nil {
		return nil, ErrNoStore
	}
	if _, err := l.flushJournal(ctx); err != nil {
		return nil, err
	}
	return l.store.ListEvents(ctx, l.meta.ID, opts)
}

// journalFlushWorker flushes the journal to the store and plugins.
func (l *Ledger) journalFlushWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			// Final flush
			if _, err := l.flushJournal(context.WithoutCancel(ctx)); err != nil {
				l.logger.Error("final journal flush failed", "error", err)
			}
			return

		case <-l.signal:
			_, _ = l.flushJournal(ctx) //nolint:errcheck // logged; retried on next tick

		case <-ticker.C:
			_, _ = l.flushJournal(ctx) //nolint:errcheck // logged; retried on next tick
		}
	}
}

// flushJournal persists pending records, then dispatches every pending
// entry to plugins in order. If the store rejects the batch nothing is
// dispatched and the entries stay queued.
func (l *Ledger) flushJournal(ctx context.Context) (int, error) {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.RLock()
	batch := make([]journalEntry, len(l.pending))
	copy(batch, l.pending)
	l.mu.RUnlock()

	if len(batch) == 0 {
		return 0, nil
	}

	start := time.Now()

	records := make([]*event.Record, 0, len(batch))
	for _, e := range batch {
		if e.record != nil {
			records = append(records, e.record)
		}
	}

	if l.store != nil && len(records) > 0 {
		if err := l.persistToken(ctx); err != nil {
			return 0, err
		}
		if err := l.store.AppendEvents(ctx, l.meta.ID, records); err != nil {
			l.logger.Error("failed to flush journal batch",
				"error", err,
				"batch_size", len(records),
			)
			return 0, fmt.Errorf("tokenledger: flush journal: %w", err)
		}
	}

	l.mu.Lock()
	rest := make([]journalEntry, len(l.pending)-len(batch))
	copy(rest, l.pending[len(batch):])
	l.pending = rest
	l.mu.Unlock()

	for _, e := range batch {
		if e.record != nil {
			l.plugins.EmitRecord(ctx, e.record)
		} else {
			l.plugins.EmitRejected(ctx, e.rejection)
		}
	}

	elapsed := time.Since(start)
	l.plugins.EmitJournalFlushed(ctx, len(records), elapsed)

	l.logger.Debug("flushed journal batch",
		"records", len(records),
		"rejections", len(batch)-len(records),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return len(records), nil
}

// persistToken writes the token metadata once. Requires l.flushMu.
func (l *Ledger) persistToken(ctx context.Context) error {
	if l.persisted || l.store == nil {
		return nil
	}
	meta := l.meta
	if err := l.store.CreateToken(ctx, &meta); err != nil && !errors.Is(err, ErrAlreadyExists) {
		l.logger.Error("failed to persist token",
			"token_id", l.meta.ID.String(),
			"error", err,
		)
		return fmt.Errorf("tokenledger: persist token: %w", err)
	}
	l.persisted = true
	return nil
}
