package tokenledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store"
)

// Open rebuilds a ledger from the token metadata and journal persisted in
// s. Every record is re-applied with the same checks a live call makes;
// a journal that skips a sequence number or fails a check is rejected with
// ErrCorruptJournal. The returned ledger flushes to s.
func Open(ctx context.Context, s store.Store, tokenID id.TokenID, opts ...Option) (*Ledger, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	meta, err := s.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	records, err := s.ListEvents(ctx, tokenID, event.ListOpts{})
	if err != nil {
		return nil, err
	}

	l := newLedger(append(opts, WithStore(s)))
	l.meta = *meta
	l.persisted = true

	if err := l.replay(records); err != nil {
		return nil, err
	}
	if err := l.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptJournal, err)
	}

	l.logger.Info("token opened",
		"token_id", tokenID.String(),
		"symbol", meta.Symbol,
		"records", len(records),
		"holders", len(l.balances),
	)
	return l, nil
}

func (l *Ledger) replay(records []*event.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: journal is empty", ErrCorruptJournal)
	}

	for i, rec := range records {
		want := uint64(i) + 1
		if rec.Seq != want {
			return fmt.Errorf("%w: %w: expected seq %d, got %d", ErrCorruptJournal, ErrSequenceGap, want, rec.Seq)
		}
		if err := l.apply(rec); err != nil {
			return fmt.Errorf("%w: seq %d: %v", ErrCorruptJournal, rec.Seq, err) //nolint:errorlint // replayed checks are not caller rejections
		}
		l.seq = rec.Seq
	}
	return nil
}

func (l *Ledger) apply(rec *event.Record) error {
	if rec.Seq == 1 {
		return l.applyGenesis(rec)
	}

	switch rec.Kind {
	case event.KindTransfer:
		t := rec.Transfer
		if t == nil || t.From.IsNull() {
			return errors.New("malformed transfer record")
		}
		if rec.Delegated {
			if err := l.checkTransferFrom(rec.Caller, t.From, t.To, t.Amount); err != nil {
				return err
			}
			l.move(t.From, t.To, t.Amount)
			l.spendAllowance(t.From, rec.Caller, t.Amount)
			return nil
		}
		if err := l.checkTransfer("transfer", t.From, t.To, t.Amount); err != nil {
			return err
		}
		l.move(t.From, t.To, t.Amount)
		return nil

	case event.KindApproval:
		a := rec.Approval
		if a == nil {
			return errors.New("malformed approval record")
		}
		l.setAllowance(a.Owner, a.Spender, a.Amount)
		return nil

	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}

func (l *Ledger) applyGenesis(rec *event.Record) error {
	if !rec.IsGenesis() {
		return errors.New("first record is not the genesis transfer")
	}
	t := rec.Transfer
	if t.To != l.meta.Owner || !t.Amount.Equal(l.meta.TotalSupply) {
		return fmt.Errorf("genesis credits %s to %s, token says %s to %s",
			t.Amount, t.To, l.meta.TotalSupply, l.meta.Owner)
	}
	l.balances[t.To] = t.Amount
	return nil
}
