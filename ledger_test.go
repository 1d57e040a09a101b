package tokenledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/types"
)

var (
	owner    = types.MustParseAddress("0x1000000000000000000000000000000000000001")
	account1 = types.MustParseAddress("0x2000000000000000000000000000000000000002")
	account2 = types.MustParseAddress("0x3000000000000000000000000000000000000003")
	spender  = types.MustParseAddress("0x4000000000000000000000000000000000000004")
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gdbConfig() tokenledger.Config {
	return tokenledger.Config{
		Name:        "GDB Token",
		Symbol:      "GDB",
		Decimals:    18,
		TotalSupply: types.NewAmount(1000000),
	}
}

func newGDB(t *testing.T, opts ...tokenledger.Option) *tokenledger.Ledger {
	t.Helper()
	opts = append([]tokenledger.Option{tokenledger.WithLogger(quietLogger())}, opts...)
	l, err := tokenledger.New(gdbConfig(), owner, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func assertBalance(t *testing.T, l *tokenledger.Ledger, acct types.Address, want uint64) {
	t.Helper()
	if got := l.BalanceOf(acct); !got.Equal(types.NewAmount(want)) {
		t.Errorf("BalanceOf(%s) = %s, want %d", acct, got, want)
	}
}

func assertAllowance(t *testing.T, l *tokenledger.Ledger, o, s types.Address, want uint64) {
	t.Helper()
	if got := l.Allowance(o, s); !got.Equal(types.NewAmount(want)) {
		t.Errorf("Allowance(%s, %s) = %s, want %d", o, s, got, want)
	}
}

func assertKind(t *testing.T, err error, want tokenledger.Kind, sentinel error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := tokenledger.KindOf(err); got != want {
		t.Errorf("KindOf = %s, want %s (err: %v)", got, want, err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("errors.Is(%v, %v) = false", err, sentinel)
	}
	if !tokenledger.IsRejection(err) {
		t.Errorf("IsRejection(%v) = false", err)
	}
}

func assertConserved(t *testing.T, l *tokenledger.Ledger) {
	t.Helper()
	if err := l.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestNew(t *testing.T) {
	l := newGDB(t)

	if l.Name() != "GDB Token" || l.Symbol() != "GDB" || l.Decimals() != 18 {
		t.Errorf("metadata = %q %q %d", l.Name(), l.Symbol(), l.Decimals())
	}
	if !l.TotalSupply().Equal(types.NewAmount(1000000)) {
		t.Errorf("TotalSupply = %s", l.TotalSupply())
	}
	assertBalance(t, l, owner, 1000000)
	assertBalance(t, l, account1, 0)
	assertAllowance(t, l, owner, spender, 0)
	if l.ID().IsNil() {
		t.Error("token ID not assigned")
	}
	if l.Sequence() != 1 {
		t.Errorf("Sequence = %d, want 1 (genesis)", l.Sequence())
	}
	meta := l.Metadata()
	if meta.Owner != owner || meta.CreatedAt.IsZero() {
		t.Errorf("Metadata = %+v", meta)
	}
	assertConserved(t, l)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*tokenledger.Config)
		field   string
		message string
	}{
		{"empty name", func(c *tokenledger.Config) { c.Name = "" }, "name", "token name must not be empty"},
		{"empty symbol", func(c *tokenledger.Config) { c.Symbol = "" }, "symbol", "token symbol must not be empty"},
		{"decimals too large", func(c *tokenledger.Config) { c.Decimals = 19 }, "decimals", "token decimals must be between 0 and 18"},
		{"zero supply", func(c *tokenledger.Config) { c.TotalSupply = types.Zero() }, "total_supply", "total supply must be positive"},
		{"name checked before symbol", func(c *tokenledger.Config) { c.Name, c.Symbol = "", "" }, "name", "token name must not be empty"},
		{"decimals checked before supply", func(c *tokenledger.Config) { c.Decimals, c.TotalSupply = 30, types.Zero() }, "decimals", "token decimals must be between 0 and 18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := gdbConfig()
			tt.mutate(&cfg)

			l, err := tokenledger.New(cfg, owner, tokenledger.WithLogger(quietLogger()))
			if l != nil {
				t.Error("expected nil ledger on failure")
			}
			assertKind(t, err, tokenledger.KindInvalidConstruction, tokenledger.ErrInvalidConstruction)

			var le *tokenledger.Error
			if !errors.As(err, &le) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if le.Field != tt.field || le.Message != tt.message {
				t.Errorf("got field=%q message=%q, want %q %q", le.Field, le.Message, tt.field, tt.message)
			}
		})
	}
}

func TestNewDecimalsBoundary(t *testing.T) {
	for _, d := range []uint8{0, 18} {
		cfg := gdbConfig()
		cfg.Decimals = d
		if _, err := tokenledger.New(cfg, owner, tokenledger.WithLogger(quietLogger())); err != nil {
			t.Errorf("decimals=%d: %v", d, err)
		}
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	n, err := l.Transfer(ctx, owner, account1, types.NewAmount(10))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if n.From != owner || n.To != account1 || !n.Amount.Equal(types.NewAmount(10)) {
		t.Errorf("notification = %+v", n)
	}
	assertBalance(t, l, owner, 999990)
	assertBalance(t, l, account1, 10)
	assertConserved(t, l)
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	n, err := l.Transfer(ctx, account2, account1, types.NewAmount(10))
	if n != nil {
		t.Error("expected no notification")
	}
	assertKind(t, err, tokenledger.KindInsufficientBalance, tokenledger.ErrInsufficientBalance)

	var le *tokenledger.Error
	if errors.As(err, &le) {
		if le.Account != account2 || !le.Requested.Equal(types.NewAmount(10)) || !le.Available.IsZero() {
			t.Errorf("error context = %+v", le)
		}
	}
	assertBalance(t, l, account2, 0)
	assertBalance(t, l, account1, 0)
	assertBalance(t, l, owner, 1000000)
	if l.Sequence() != 1 {
		t.Errorf("rejected call advanced the journal to %d", l.Sequence())
	}
}

func TestTransferNullDestination(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	_, err := l.Transfer(ctx, owner, types.NullAddress, types.NewAmount(10))
	assertKind(t, err, tokenledger.KindNullDestination, tokenledger.ErrNullDestination)
	assertBalance(t, l, owner, 1000000)
	assertBalance(t, l, types.NullAddress, 0)

	// Destination is checked before balance.
	_, err = l.Transfer(ctx, account2, types.NullAddress, types.NewAmount(10))
	assertKind(t, err, tokenledger.KindNullDestination, tokenledger.ErrNullDestination)
}

func TestTransferEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("zero amount", func(t *testing.T) {
		l := newGDB(t)
		n, err := l.Transfer(ctx, account2, account1, types.Zero())
		if err != nil {
			t.Fatalf("zero transfer: %v", err)
		}
		if n == nil || !n.Amount.IsZero() {
			t.Errorf("notification = %+v", n)
		}
		if l.Sequence() != 2 {
			t.Errorf("zero transfer not journaled, seq = %d", l.Sequence())
		}
	})

	t.Run("self transfer", func(t *testing.T) {
		l := newGDB(t)
		if _, err := l.Transfer(ctx, owner, owner, types.NewAmount(500)); err != nil {
			t.Fatal(err)
		}
		assertBalance(t, l, owner, 1000000)
		assertConserved(t, l)
	})

	t.Run("entire balance", func(t *testing.T) {
		l := newGDB(t)
		if _, err := l.Transfer(ctx, owner, account1, types.NewAmount(1000000)); err != nil {
			t.Fatal(err)
		}
		assertBalance(t, l, owner, 0)
		assertBalance(t, l, account1, 1000000)
		_, err := l.Transfer(ctx, owner, account1, types.NewAmount(1))
		assertKind(t, err, tokenledger.KindInsufficientBalance, tokenledger.ErrInsufficientBalance)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	n, err := l.Approve(ctx, owner, spender, types.NewAmount(10))
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if n.Owner != owner || n.Spender != spender || !n.Amount.Equal(types.NewAmount(10)) {
		t.Errorf("notification = %+v", n)
	}
	assertAllowance(t, l, owner, spender, 10)

	// Overwrite, not add.
	if _, err := l.Approve(ctx, owner, spender, types.NewAmount(3)); err != nil {
		t.Fatal(err)
	}
	assertAllowance(t, l, owner, spender, 3)

	// Approval does not require a balance and does not move units.
	if _, err := l.Approve(ctx, account2, spender, types.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}
	assertAllowance(t, l, account2, spender, 1000)
	assertBalance(t, l, owner, 1000000)

	// Zero clears.
	if _, err := l.Approve(ctx, owner, spender, types.Zero()); err != nil {
		t.Fatal(err)
	}
	assertAllowance(t, l, owner, spender, 0)
	if len(l.Snapshot().Allowances) != 1 {
		t.Errorf("snapshot allowances = %+v", l.Snapshot().Allowances)
	}
}

func TestTransferFrom(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	if _, err := l.Approve(ctx, owner, spender, types.NewAmount(10)); err != nil {
		t.Fatal(err)
	}
	n, err := l.TransferFrom(ctx, spender, owner, account2, types.NewAmount(10))
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if n.From != owner || n.To != account2 || !n.Amount.Equal(types.NewAmount(10)) {
		t.Errorf("notification = %+v", n)
	}
	assertAllowance(t, l, owner, spender, 0)
	assertBalance(t, l, owner, 999990)
	assertBalance(t, l, account2, 10)
	assertBalance(t, l, spender, 0)

	_, err = l.TransferFrom(ctx, spender, owner, account2, types.NewAmount(10))
	assertKind(t, err, tokenledger.KindInsufficientAllowance, tokenledger.ErrInsufficientAllowance)
	assertBalance(t, l, owner, 999990)
	assertConserved(t, l)
}

func TestTransferFromCheckOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		from  types.Address
		to    types.Address
		want  tokenledger.Kind
		error error
	}{
		{"null destination first", account2, types.NullAddress, tokenledger.KindNullDestination, tokenledger.ErrNullDestination},
		{"balance before allowance", account2, account1, tokenledger.KindInsufficientBalance, tokenledger.ErrInsufficientBalance},
		{"allowance last", owner, account1, tokenledger.KindInsufficientAllowance, tokenledger.ErrInsufficientAllowance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newGDB(t)
			_, err := l.TransferFrom(ctx, spender, tt.from, tt.to, types.NewAmount(5))
			assertKind(t, err, tt.want, tt.error)
			assertBalance(t, l, owner, 1000000)
		})
	}
}

func TestTransferFromPartialAllowance(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	_, _ = l.Approve(ctx, owner, spender, types.NewAmount(100))
	if _, err := l.TransferFrom(ctx, spender, owner, account1, types.NewAmount(30)); err != nil {
		t.Fatal(err)
	}
	assertAllowance(t, l, owner, spender, 70)

	_, err := l.TransferFrom(ctx, spender, owner, account1, types.NewAmount(71))
	assertKind(t, err, tokenledger.KindInsufficientAllowance, tokenledger.ErrInsufficientAllowance)
	var le *tokenledger.Error
	if errors.As(err, &le) {
		if le.Spender != spender || le.Account != owner || !le.Available.Equal(types.NewAmount(70)) {
			t.Errorf("error context = %+v", le)
		}
	}
	assertAllowance(t, l, owner, spender, 70)
	assertBalance(t, l, account1, 30)
}

func TestTransferFromOwnAllowance(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)

	// Spending your own balance through TransferFrom still needs an allowance.
	_, err := l.TransferFrom(ctx, owner, owner, account1, types.NewAmount(1))
	assertKind(t, err, tokenledger.KindInsufficientAllowance, tokenledger.ErrInsufficientAllowance)

	_, _ = l.Approve(ctx, owner, owner, types.NewAmount(1))
	if _, err := l.TransferFrom(ctx, owner, owner, account1, types.NewAmount(1)); err != nil {
		t.Fatal(err)
	}
	assertAllowance(t, l, owner, owner, 0)
}

func TestConcurrentDoubleSpend(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)
	if _, err := l.Transfer(ctx, owner, account1, types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Transfer(ctx, account1, account2, types.NewAmount(60))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, tokenledger.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("%d concurrent transfers of 60 out of 100 succeeded, want 1", succeeded)
	}
	assertBalance(t, l, account1, 40)
	assertBalance(t, l, account2, 60)
	assertConserved(t, l)
}

func TestConcurrentAllowanceSpend(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)
	_, _ = l.Approve(ctx, owner, spender, types.NewAmount(100))

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.TransferFrom(ctx, spender, owner, account1, types.NewAmount(1))
		}()
	}
	wg.Wait()

	assertAllowance(t, l, owner, spender, 0)
	assertBalance(t, l, account1, 100)
	assertConserved(t, l)
}

func TestHoldersAndSnapshot(t *testing.T) {
	ctx := context.Background()
	l := newGDB(t)
	_, _ = l.Transfer(ctx, owner, account2, types.NewAmount(300))
	_, _ = l.Transfer(ctx, owner, account1, types.NewAmount(300))
	_, _ = l.Approve(ctx, account1, spender, types.NewAmount(5))

	holders := l.Holders()
	if len(holders) != 3 {
		t.Fatalf("holders = %+v", holders)
	}
	if holders[0].Account != owner || !holders[0].Balance.Equal(types.NewAmount(999400)) {
		t.Errorf("holders[0] = %+v", holders[0])
	}
	// Equal balances order by address.
	if holders[1].Account != account1 || holders[2].Account != account2 {
		t.Errorf("tie order = %s, %s", holders[1].Account, holders[2].Account)
	}

	snap := l.Snapshot()
	if snap.Seq != 4 || snap.TokenID != l.ID() {
		t.Errorf("snapshot seq=%d token=%s", snap.Seq, snap.TokenID)
	}
	if len(snap.Allowances) != 1 || snap.Allowances[0].Owner != account1 {
		t.Errorf("snapshot allowances = %+v", snap.Allowances)
	}
	var sum []types.Amount
	for _, h := range snap.Holdings {
		sum = append(sum, h.Balance)
	}
	if !types.Sum(sum...).Equal(l.TotalSupply()) {
		t.Errorf("snapshot holdings sum to %s", types.Sum(sum...))
	}
}

func TestErrorHelpers(t *testing.T) {
	if tokenledger.IsRejection(tokenledger.ErrTokenNotFound) {
		t.Error("store error classified as rejection")
	}
	if !tokenledger.IsNotFound(tokenledger.ErrTokenNotFound) {
		t.Error("IsNotFound(ErrTokenNotFound) = false")
	}
	if tokenledger.KindOf(errors.New("x")) != tokenledger.KindUnknown {
		t.Error("KindOf(plain error) != KindUnknown")
	}
	if tokenledger.KindInsufficientBalance.String() != "insufficient_balance" {
		t.Errorf("Kind.String = %q", tokenledger.KindInsufficientBalance.String())
	}
	if tokenledger.IsRetryable(&tokenledger.Error{Kind: tokenledger.KindInsufficientBalance}) {
		t.Error("rejection reported retryable")
	}
}
