package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	ledgerstore "github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

// Collection name constants.
const (
	colTokens = "tokenledger_tokens"
	colEvents = "tokenledger_events"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	closed atomic.Bool
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tokenledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tokenledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tokenledger.ErrAlreadyExists
		}
		return fmt.Errorf("tokenledger/mongo: create token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrTokenNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get token: %w", err)
	}
	return fromTokenModel(&m)
}

func (s *Store) ListTokens(ctx context.Context, opts token.ListOpts) ([]*token.Token, error) {
	var models []tokenModel

	filter := bson.M{}
	if opts.Symbol != "" {
		filter["symbol"] = opts.Symbol
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list tokens: %w", err)
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
	if _, err := s.GetToken(ctx, tokenID); err != nil {
		return err
	}
	for _, r := range records {
		m := toEventModel(r)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Skip duplicates for idempotency
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("tokenledger/mongo: append event %d: %w", r.Seq, err)
		}
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Record, error) {
	if _, err := s.GetToken(ctx, tokenID); err != nil {
		return nil, err
	}

	filter := bson.M{
		"token_id": tokenID.String(),
		"seq":      bson.M{"$gt": int64(opts.AfterSeq)}, //nolint:gosec // sequence numbers stay far below MaxInt64
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if !opts.Account.IsNull() {
		filter["parties"] = opts.Account.Hex()
	}

	var models []eventModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list events: %w", err)
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
	if _, err := s.GetToken(ctx, tokenID); err != nil {
		return 0, err
	}

	var models []eventModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("tokenledger/mongo: last sequence: %w", err)
	}
	if len(models) == 0 {
		return 0, nil
	}
	return uint64(models[0].Seq), nil //nolint:gosec // seq is never negative
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tokenledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTokens: {
			{Keys: bson.D{{Key: "symbol", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "parties", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "seq", Value: 1}}},
		},
	}
}
