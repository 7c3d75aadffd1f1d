package topic

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/blendin/internal/dependencies/random"
	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/storage"
)

// DefaultTopics seeds the catalog when neither a file nor storage provides one
var DefaultTopics = []string{
	"Airport", "Bakery", "Beach", "Birthday Party", "Camping", "Casino",
	"Circus", "Dentist", "Farm", "Football Match", "Haunted House", "Hospital",
	"Library", "Museum", "Pirate Ship", "Pizza", "Space Station", "Submarine",
	"Supermarket", "Wedding", "Zoo",
}

// Service holds the topic catalog and deals topics and decoys
type Service struct {
	storage storage.Storage
	random  random.Random
	logger  *slog.Logger

	mu     sync.RWMutex
	topics []string
	loaded bool
}

// New creates a new topic Service
func New(storage storage.Storage, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		random:  random,
		logger:  logger.With(slog.String("component", "topic")),
	}
}

// Bootstrap loads the catalog from a file if one is given, otherwise from
// storage, falling back to DefaultTopics (which are then saved to storage).
func (s *Service) Bootstrap(ctx context.Context, path string) error {
	if path != "" {
		return s.LoadFromFile(ctx, path)
	}

	err := s.LoadFromStorage(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrTopicsNotLoaded) {
		return err
	}

	s.logger.Info("no stored topics, using defaults", slog.Int("count", len(DefaultTopics)))
	if err := s.storage.SaveTopics(ctx, DefaultTopics); err != nil {
		return err
	}
	return s.LoadTopics(DefaultTopics)
}

// LoadFromStorage loads topics from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	topics, err := s.storage.GetTopics(ctx)
	if err != nil {
		return err
	}
	return s.LoadTopics(topics)
}

// LoadFromFile loads topics from a file (one per line, '#' starts a comment)
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var topics []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Save to storage for future use
	if err := s.storage.SaveTopics(ctx, topics); err != nil {
		return err
	}

	s.logger.Info("topics loaded from file", slog.String("path", path), slog.Int("count", len(topics)))
	return s.LoadTopics(topics)
}

// LoadTopics replaces the catalog. Duplicates and blanks are dropped.
func (s *Service) LoadTopics(topics []string) error {
	seen := make(map[string]struct{}, len(topics))
	cleaned := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, t)
	}
	sort.Strings(cleaned)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = cleaned
	s.loaded = true
	return nil
}

// IsLoaded returns whether the catalog has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Count returns the number of topics in the catalog
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topics)
}

// Pick returns a uniformly chosen topic
func (s *Service) Pick() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic, ok := random.Choice(s.random, s.topics)
	if !ok {
		return "", model.ErrTopicsNotLoaded
	}
	return topic, nil
}

// Decoys returns up to n distinct topics other than exclude.
// Fewer are returned when the catalog is too small.
func (s *Service) Decoys(exclude string, n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool := make([]string, 0, len(s.topics))
	for _, t := range s.topics {
		if !strings.EqualFold(t, exclude) {
			pool = append(pool, t)
		}
	}

	return random.Sample(s.random, pool, n)
}
