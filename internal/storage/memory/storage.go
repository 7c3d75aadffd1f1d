package memory

import (
	"context"
	"sync"

	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	codes  map[model.LobbyCode]struct{}
	topics []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		codes: make(map[model.LobbyCode]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Code reservation operations

func (s *Storage) ReserveCode(ctx context.Context, code model.LobbyCode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code]; ok {
		return false, nil
	}
	s.codes[code] = struct{}{}
	return true, nil
}

func (s *Storage) ReleaseCode(ctx context.Context, code model.LobbyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, code)
	return nil
}

func (s *Storage) CodeReserved(ctx context.Context, code model.LobbyCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[code]
	return ok, nil
}

// Topic operations

func (s *Storage) GetTopics(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.topics == nil {
		return nil, model.ErrTopicsNotLoaded
	}
	result := make([]string, len(s.topics))
	copy(result, s.topics)
	return result, nil
}

func (s *Storage) SaveTopics(ctx context.Context, topics []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = make([]string, len(topics))
	copy(s.topics, topics)
	return nil
}
