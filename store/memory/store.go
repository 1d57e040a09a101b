// Package memory provides an in-process Store, used by tests and by the
// binary when no persistence is wanted.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Token storage
	tokens map[string]*token.Token
	order  []string

	// Journal storage, sorted by Seq per token
	events map[string][]*event.Record
}

func New() *Store {
	return &Store{
		tokens: make(map[string]*token.Token),
		events: make(map[string][]*event.Record),
	}
}

// Token Store implementation
func (s *Store) CreateToken(_ context.Context, t *token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	key := t.ID.String()
	if _, exists := s.tokens[key]; exists {
		return tokenledger.ErrAlreadyExists
	}
	cp := *t
	s.tokens[key] = &cp
	s.order = append(s.order, key)
	return nil
}

func (s *Store) GetToken(_ context.Context, tokenID id.TokenID) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tokenledger.ErrStoreClosed
	}
	if t, ok := s.tokens[tokenID.String()]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, tokenledger.ErrTokenNotFound
}

func (s *Store) ListTokens(_ context.Context, opts token.ListOpts) ([]*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tokenledger.ErrStoreClosed
	}

	result := make([]*token.Token, 0)
	for _, key := range s.order {
		t := s.tokens[key]
		if opts.Symbol == "" || t.Symbol == opts.Symbol {
			cp := *t
			result = append(result, &cp)
		}
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Journal Store implementation
func (s *Store) AppendEvents(_ context.Context, tokenID id.TokenID, records []*event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	key := tokenID.String()
	if _, ok := s.tokens[key]; !ok {
		return tokenledger.ErrTokenNotFound
	}

	journal := s.events[key]
	seen := make(map[uint64]struct{}, len(journal))
	for _, r := range journal {
		seen[r.Seq] = struct{}{}
	}
	for _, r := range records {
		if _, dup := seen[r.Seq]; dup {
			continue
		}
		seen[r.Seq] = struct{}{}
		cp := *r
		journal = append(journal, &cp)
	}
	sort.Slice(journal, func(i, j int) bool { return journal[i].Seq < journal[j].Seq })
	s.events[key] = journal
	return nil
}

func (s *Store) ListEvents(_ context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tokenledger.ErrStoreClosed
	}
	if _, ok := s.tokens[tokenID.String()]; !ok {
		return nil, tokenledger.ErrTokenNotFound
	}

	matched := event.Filter(s.events[tokenID.String()], opts)
	result := make([]*event.Record, len(matched))
	for i, r := range matched {
		cp := *r
		result[i] = &cp
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context, tokenID id.TokenID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, tokenledger.ErrStoreClosed
	}
	if _, ok := s.tokens[tokenID.String()]; !ok {
		return 0, tokenledger.ErrTokenNotFound
	}
	journal := s.events[tokenID.String()]
	if len(journal) == 0 {
		return 0, nil
	}
	return journal[len(journal)-1].Seq, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
