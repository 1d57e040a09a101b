// Package bolt provides a Store backed by an embedded BoltDB file.
//
// Layout: a "tokens" bucket maps token ID to JSON metadata, and an
// "events" bucket holds one nested bucket per token whose keys are
// big-endian sequence numbers, so a cursor walks the journal in order.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/boltdb/bolt"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

var _ store.Store = (*Store)(nil)

var (
	tokensBucket = []byte("tokens")
	eventsBucket = []byte("events")
)

// Store implements store.Store on a bolt database.
type Store struct {
	db     *bolt.DB
	closed atomic.Bool
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("tokenledger/bolt: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying bolt database.
func (s *Store) DB() *bolt.DB { return s.db }

// Migrate creates the top-level buckets.
func (s *Store) Migrate(_ context.Context) error {
	if s.closed.Load() {
		return tokenledger.ErrStoreClosed
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(tokensBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(eventsBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("tokenledger/bolt: migrate: %w", err)
	}
	return nil
}

// Ping checks the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return tokenledger.ErrStoreClosed
	}
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// Close closes the database file.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Token methods
// ──────────────────────────────────────────────────

func (s *Store) CreateToken(_ context.Context, t *token.Token) error {
	if s.closed.Load() {
		return tokenledger.ErrStoreClosed
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("tokenledger/bolt: encode token: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tokens(tx)
		if err != nil {
			return err
		}
		key := []byte(t.ID.String())
		if b.Get(key) != nil {
			return tokenledger.ErrAlreadyExists
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("tokenledger/bolt: create token: %w", err)
		}
		_, err = tx.Bucket(eventsBucket).CreateBucketIfNotExists(key)
		return err
	})
}

func (s *Store) GetToken(_ context.Context, tokenID id.TokenID) (*token.Token, error) {
	if s.closed.Load() {
		return nil, tokenledger.ErrStoreClosed
	}
	var t token.Token
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := tokens(tx)
		if err != nil {
			return err
		}
		data := b.Get([]byte(tokenID.String()))
		if data == nil {
			return tokenledger.ErrTokenNotFound
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTokens(_ context.Context, opts token.ListOpts) ([]*token.Token, error) {
	if s.closed.Load() {
		return nil, tokenledger.ErrStoreClosed
	}
	result := make([]*token.Token, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := tokens(tx)
		if err != nil {
			return err
		}
		skipped := 0
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var t token.Token
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("tokenledger/bolt: decode token %s: %w", k, err)
			}
			if opts.Symbol != "" && t.Symbol != opts.Symbol {
				continue
			}
			if skipped < opts.Offset {
				skipped++
				continue
			}
			result = append(result, &t)
			if opts.Limit > 0 && len(result) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Journal methods
// ──────────────────────────────────────────────────

func (s *Store) AppendEvents(_ context.Context, tokenID id.TokenID, records []*event.Record) error {
	if s.closed.Load() {
		return tokenledger.ErrStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := journal(tx, tokenID)
		if err != nil {
			return err
		}
		for _, r := range records {
			key := seqKey(r.Seq)
			if b.Get(key) != nil {
				continue
			}
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("tokenledger/bolt: encode record %d: %w", r.Seq, err)
			}
			if err := b.Put(key, data); err != nil {
				return fmt.Errorf("tokenledger/bolt: append record %d: %w", r.Seq, err)
			}
		}
		return nil
	})
}

func (s *Store) ListEvents(_ context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Record, error) {
	if s.closed.Load() {
		return nil, tokenledger.ErrStoreClosed
	}
	result := make([]*event.Record, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := journal(tx, tokenID)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.Seek(seqKey(opts.AfterSeq + 1)); k != nil; k, v = c.Next() {
			var r event.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("tokenledger/bolt: decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if !opts.Match(&r) {
				continue
			}
			result = append(result, &r)
			if opts.Limit > 0 && len(result) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context, tokenID id.TokenID) (uint64, error) {
	if s.closed.Load() {
		return 0, tokenledger.ErrStoreClosed
	}
	var seq uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := journal(tx, tokenID)
		if err != nil {
			return err
		}
		if k, _ := b.Cursor().Last(); k != nil {
			seq = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	return seq, err
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func tokens(tx *bolt.Tx) (*bolt.Bucket, error) {
	b := tx.Bucket(tokensBucket)
	if b == nil {
		return nil, tokenledger.ErrStoreNotReady
	}
	return b, nil
}

func journal(tx *bolt.Tx, tokenID id.TokenID) (*bolt.Bucket, error) {
	events := tx.Bucket(eventsBucket)
	if events == nil {
		return nil, tokenledger.ErrStoreNotReady
	}
	b := events.Bucket([]byte(tokenID.String()))
	if b == nil {
		return nil, tokenledger.ErrTokenNotFound
	}
	return b, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
