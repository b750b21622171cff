package otp

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type sendWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryStore implements Store with in-process maps. Suitable for
// development and tests only; counters do not survive restarts and are not
// shared between instances.
type MemoryStore struct {
	logger     *zap.Logger
	mu         sync.Mutex
	challenges map[string]*Challenge
	windows    map[string]*sendWindow

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory OTP store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger:     logger.Named("otp.store.memory"),
		challenges: make(map[string]*Challenge),
		windows:    make(map[string]*sendWindow),
		now:        time.Now,
	}
}

// PutChallenge implements Store.PutChallenge
func (s *MemoryStore) PutChallenge(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.challenges[ch.Phone] = &cp
	return nil
}

// GetChallenge implements Store.GetChallenge
func (s *MemoryStore) GetChallenge(_ context.Context, phone string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[phone]
	if !ok {
		return nil, ErrNoChallenge
	}
	cp := *ch
	return &cp, nil
}

// IncrementAttempts implements Store.IncrementAttempts
func (s *MemoryStore) IncrementAttempts(_ context.Context, phone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[phone]
	if !ok {
		return 0, ErrNoChallenge
	}
	ch.Attempts++
	return ch.Attempts, nil
}

// DeleteChallenge implements Store.DeleteChallenge
func (s *MemoryStore) DeleteChallenge(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, phone)
	return nil
}

// IncrSendWindow implements Store.IncrSendWindow
func (s *MemoryStore) IncrSendWindow(_ context.Context, phone string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[phone]
	if !ok || now.After(w.resetAt) {
		w = &sendWindow{resetAt: now.Add(window)}
		s.windows[phone] = w
	}
	w.count++
	return w.count, nil
}
