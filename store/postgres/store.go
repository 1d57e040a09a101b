package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	ledgerstore "github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db     *grove.DB
	pg     *pgdriver.PgDB
	closed atomic.Bool
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tokenledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return tokenledger.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// ==================== Token Store ====================

func (s *Store) CreateToken(ctx context.Context, t *token.Token) error {
	m := toTokenModel(t)
	res, err := s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: create token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	m := new(tokenModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", tokenID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrTokenNotFound
		}
		return nil, fmt.Errorf("tokenledger/postgres: get token: %w", err)
	}
	return fromTokenModel(m)
}

func (s *Store) ListTokens(ctx context.Context, opts token.ListOpts) ([]*token.Token, error) {
	var models []tokenModel
	q := s.pg.NewSelect(&models)

	if opts.Symbol != "" {
		q = q.Where("symbol = $1", opts.Symbol)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: list tokens: %w", err)
	}

	result := make([]*token.Token, len(models))
	for i := range models {
		t, err := fromTokenModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Journal Store ====================

func (s *Store) AppendEvents(ctx context.Context, tokenID id.TokenID, records []*event.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.tokenExists(ctx, tokenID); err != nil {
		return err
	}
	models := make([]eventModel, len(records))
	for i, r := range records {
		models[i] = *toEventModel(r)
	}
	_, err := s.pg.NewInsert(&models).
		OnConflict("(token_id, seq) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: append events: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Record, error) {
	if err := s.tokenExists(ctx, tokenID); err != nil {
		return nil, err
	}

	var models []eventModel
	q := s.pg.NewSelect(&models).
		Where("token_id = $1", tokenID.String()).
		Where("seq > $2", int64(opts.AfterSeq)) //nolint:gosec // sequence numbers stay far below MaxInt64

	argIdx := 2
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if !opts.Account.IsNull() {
		argIdx++
		q = q.Where(fmt.Sprintf("(from_address = $%[1]d OR to_address = $%[1]d OR (delegated AND caller = $%[1]d))", argIdx), opts.Account.Hex())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: list events: %w", err)
	}

	result := make([]*event.Record, len(models))
	for i := range models {
		r, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error) {
	if err := s.tokenExists(ctx, tokenID); err != nil {
		return 0, err
	}
	var seq int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(MAX(seq), 0) FROM tokenledger_events WHERE token_id = $1
	`, tokenID.String()).Scan(ctx, &seq)
	if err != nil {
		return 0, fmt.Errorf("tokenledger/postgres: last sequence: %w", err)
	}
	return uint64(seq), nil //nolint:gosec // seq column is never negative
}

// ==================== Helpers ====================

func (s *Store) tokenExists(ctx context.Context, tokenID id.TokenID) error {
	var n int64
	err := s.pg.NewRaw(`
		SELECT COUNT(1) FROM tokenledger_tokens WHERE id = $1
	`, tokenID.String()).Scan(ctx, &n)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: lookup token: %w", err)
	}
	if n == 0 {
		return tokenledger.ErrTokenNotFound
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
