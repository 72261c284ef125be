// Package session keeps open database connections keyed by client session id.
package session

import (
	"errors"
	"sync"

	"dbmask/internal/database"

	"go.uber.org/zap"
)

// DefaultID is used when a client does not send a session id.
const DefaultID = "default"

var ErrNoConnection = errors.New("no active database connection")

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	conns  map[string]*database.Connection
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		conns:  make(map[string]*database.Connection),
		logger: logger,
	}
}

// Create registers conn under id, closing any connection it replaces.
func (s *Store) Create(id string, conn *database.Connection) {
	s.mu.Lock()
	prev := s.conns[id]
	s.conns[id] = conn
	s.mu.Unlock()

	if prev != nil && prev != conn {
		s.close(id, prev)
	}
}

func (s *Store) Get(id string) (*database.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[id]
	if !ok {
		return nil, ErrNoConnection
	}
	return conn, nil
}

// Evict closes and forgets the connection of id. It reports whether one existed.
func (s *Store) Evict(id string) bool {
	s.mu.Lock()
	conn, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()

	if ok {
		s.close(id, conn)
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// CloseAll closes every connection and empties the store.
func (s *Store) CloseAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[string]*database.Connection)
	s.mu.Unlock()

	for id, conn := range conns {
		s.close(id, conn)
	}
}

func (s *Store) close(id string, conn *database.Connection) {
	if err := conn.Close(); err != nil {
		s.logger.Warn("Failed to close connection", zap.String("session", id), zap.Error(err))
		return
	}
	s.logger.Info("Closed connection", zap.String("session", id))
}
