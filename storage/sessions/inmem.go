package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/canteraproject/cantera/core/account"
)

type entry struct {
	accountID string
	expiresAt time.Time
}

// inmemStore is a process-local session store for tests and single-node runs.
type inmemStore struct {
	mutex sync.RWMutex
	table map[string]entry
}

var _ account.SessionStore = (*inmemStore)(nil) // interface compliance check

func NewInmemStore() *inmemStore {
	return &inmemStore{table: make(map[string]entry)}
}

func (s *inmemStore) PutSession(ctx context.Context, sessionID, accountID string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[sessionID] = entry{accountID: accountID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *inmemStore) GetSession(ctx context.Context, sessionID string) (string, error) {
	s.mutex.RLock()
	e, ok := s.table[sessionID]
	s.mutex.RUnlock()

	if !ok {
		return "", account.ErrNoSession
	}
	if time.Now().After(e.expiresAt) {
		s.mutex.Lock()
		delete(s.table, sessionID)
		s.mutex.Unlock()
		return "", account.ErrNoSession
	}
	return e.accountID, nil
}

func (s *inmemStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.table, sessionID)
	return nil
}
