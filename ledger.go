package tokenledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/plugin"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

// Config holds the immutable parameters of a token.
type Config struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply types.Amount
}

type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

// Ledger is a single fungible token: its metadata, every account balance
// and every delegated allowance. All state sits behind one RWMutex; calls
// never perform I/O. Persistence and plugin dispatch happen on the
// journal flush worker started by Start.
type Ledger struct {
	mu         sync.RWMutex
	meta       token.Token
	balances   map[types.Address]types.Amount
	allowances map[allowanceKey]types.Amount
	seq        uint64
	pending    []journalEntry

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Background workers
	lifeMu    sync.Mutex
	started   bool
	stopped   bool
	flushMu   sync.Mutex
	persisted bool
	signal    chan struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithStore sets the store the journal is flushed to. Without a store
// the journal is still dispatched to plugins but nothing is persisted.
func WithStore(s store.Store) Option {
	return func(l *Ledger) {
		l.store = s
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithJournalConfig configures journal flushing parameters.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		if batchSize > 0 {
			l.journalBatchSize = batchSize
		}
		if flushInterval > 0 {
			l.journalFlushInterval = flushInterval
		}
	}
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = now
	}
}

// WithTokenID fixes the token ID instead of generating one.
func WithTokenID(tokenID id.TokenID) Option {
	return func(l *Ledger) {
		l.meta.ID = tokenID
	}
}

func newLedger(opts []Option) *Ledger {
	l := &Ledger{
		balances:             make(map[types.Address]types.Amount),
		allowances:           make(map[allowanceKey]types.Amount),
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		clock:                time.Now,
		signal:               make(chan struct{}, 1),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// New deploys a token: the whole supply is credited to owner and no
// allowances exist. On failure the returned error is an *Error of kind
// KindInvalidConstruction and no ledger is returned.
func New(cfg Config, owner types.Address, opts ...Option) (*Ledger, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := newLedger(opts)
	if l.meta.ID.IsNil() {
		l.meta.ID = id.NewTokenID()
	}
	l.meta.Name = cfg.Name
	l.meta.Symbol = cfg.Symbol
	l.meta.Decimals = cfg.Decimals
	l.meta.TotalSupply = cfg.TotalSupply
	l.meta.Owner = owner
	l.meta.CreatedAt = l.clock().UTC()

	l.balances[owner] = cfg.TotalSupply

	l.appendRecord(&event.Record{
		Kind:   event.KindTransfer,
		Caller: owner,
		Transfer: &event.Transfer{
			From:   types.NullAddress,
			To:     owner,
			Amount: cfg.TotalSupply,
		},
	})

	l.logger.Info("token deployed",
		"token_id", l.meta.ID.String(),
		"symbol", cfg.Symbol,
		"decimals", cfg.Decimals,
		"total_supply", cfg.TotalSupply.String(),
		"owner", owner.String(),
	)

	return l, nil
}

func (c Config) validate() error {
	switch {
	case c.Name == "":
		return constructionError("name", "token name must not be empty")
	case c.Symbol == "":
		return constructionError("symbol", "token symbol must not be empty")
	case c.Decimals > types.MaxDecimals:
		return constructionError("decimals", "token decimals must be between 0 and 18")
	case !c.TotalSupply.IsPositive():
		return constructionError("total_supply", "total supply must be positive")
	}
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// ID returns the token ID.
func (l *Ledger) ID() id.TokenID { return l.meta.ID }

// Name returns the token name.
func (l *Ledger) Name() string { return l.meta.Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.meta.Symbol }

// Decimals returns the display precision.
func (l *Ledger) Decimals() uint8 { return l.meta.Decimals }

// TotalSupply returns the fixed supply.
func (l *Ledger) TotalSupply() types.Amount { return l.meta.TotalSupply }

// Metadata returns a copy of the token metadata.
func (l *Ledger) Metadata() *token.Token {
	m := l.meta
	return &m
}

// BalanceOf returns the balance of account, zero if it never held units.
func (l *Ledger) BalanceOf(account types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// Allowance returns how much spender may still move out of owner's balance.
func (l *Ledger) Allowance(owner, spender types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey{owner: owner, spender: spender}]
}

// Sequence returns the sequence number of the latest journal record.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Transfer moves amount from caller to to. A zero amount succeeds and
// still produces a notification.
func (l *Ledger) Transfer(ctx context.Context, caller, to types.Address, amount types.Amount) (*event.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkTransfer("transfer", caller, to, amount); err != nil {
		l.reject(ctx, "transfer", caller, err)
		return nil, err
	}
	l.move(caller, to, amount)

	n := &event.Transfer{From: caller, To: to, Amount: amount}
	l.appendRecord(&event.Record{
		Kind:     event.KindTransfer,
		Caller:   caller,
		Transfer: copyTransfer(n),
	})
	return n, nil
}

// Approve sets spender's allowance over caller's balance to amount,
// replacing any previous value. Zero clears it.
func (l *Ledger) Approve(ctx context.Context, caller, spender types.Address, amount types.Amount) (*event.Approval, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setAllowance(caller, spender, amount)

	n := &event.Approval{Owner: caller, Spender: spender, Amount: amount}
	cp := *n
	l.appendRecord(&event.Record{
		Kind:     event.KindApproval,
		Caller:   caller,
		Approval: &cp,
	})
	return n, nil
}

// TransferFrom moves amount from from to to, spending caller's allowance
// over from. Checks run in order: destination, balance, allowance.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to types.Address, amount types.Amount) (*event.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkTransferFrom(caller, from, to, amount); err != nil {
		l.reject(ctx, "transfer_from", caller, err)
		return nil, err
	}
	l.move(from, to, amount)
	l.spendAllowance(from, caller, amount)

	n := &event.Transfer{From: from, To: to, Amount: amount}
	l.appendRecord(&event.Record{
		Kind:      event.KindTransfer,
		Caller:    caller,
		Delegated: true,
		Transfer:  copyTransfer(n),
	})
	return n, nil
}

// checkTransfer and the helpers below require l.mu held for writing.

func (l *Ledger) checkTransfer(op string, from, to types.Address, amount types.Amount) error {
	if to.IsNull() {
		return &Error{Kind: KindNullDestination, Op: op, Account: from}
	}
	if have := l.balances[from]; have.LessThan(amount) {
		return &Error{
			Kind:      KindInsufficientBalance,
			Op:        op,
			Account:   from,
			Requested: amount,
			Available: have,
		}
	}
	return nil
}

func (l *Ledger) checkTransferFrom(caller, from, to types.Address, amount types.Amount) error {
	if err := l.checkTransfer("transfer_from", from, to, amount); err != nil {
		return err
	}
	key := allowanceKey{owner: from, spender: caller}
	if have := l.allowances[key]; have.LessThan(amount) {
		return &Error{
			Kind:      KindInsufficientAllowance,
			Op:        "transfer_from",
			Account:   from,
			Spender:   caller,
			Requested: amount,
			Available: have,
		}
	}
	return nil
}

func (l *Ledger) move(from, to types.Address, amount types.Amount) {
	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
}

func (l *Ledger) setAllowance(owner, spender types.Address, amount types.Amount) {
	key := allowanceKey{owner: owner, spender: spender}
	if amount.IsZero() {
		delete(l.allowances, key)
		return
	}
	l.allowances[key] = amount
}

func (l *Ledger) spendAllowance(owner, spender types.Address, amount types.Amount) {
	key := allowanceKey{owner: owner, spender: spender}
	l.setAllowance(owner, spender, l.allowances[key].Sub(amount))
}

func copyTransfer(t *event.Transfer) *event.Transfer {
	cp := *t
	return &cp
}
