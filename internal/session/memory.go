package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore implements Store using in-memory storage. Suitable for
// development and tests; state is lost on restart.
type MemoryStore struct {
	logger *zap.Logger
	mu     sync.Mutex
	// records by token; expired entries are kept and rejected at read time,
	// matching the passive-expiry model of the persistent stores.
	records map[string]*Record
	// current token per identity, for revoke-on-reissue
	byIdentity map[Identity]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger:     logger.Named("session.store.memory"),
		records:    make(map[string]*Record),
		byIdentity: make(map[Identity]string),
	}
}

// Put implements Store.Put
func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident := rec.Identity()
	if prev, ok := s.byIdentity[ident]; ok && prev != rec.Token {
		if old, found := s.records[prev]; found {
			old.Revoked = true
		}
	}

	cp := *rec
	s.records[rec.Token] = &cp
	s.byIdentity[ident] = rec.Token
	return nil
}

// Get implements Store.Get
func (s *MemoryStore) Get(_ context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return nil, ErrInvalidSession
	}
	cp := *rec
	return &cp, nil
}

// Revoke implements Store.Revoke
func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[token]; ok {
		rec.Revoked = true
	}
	return nil
}

func (s *MemoryStore) String() string {
	return fmt.Sprintf("memory session store (%d records)", len(s.records))
}
