package redis

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Sharing one Redis between several servers keeps lobby codes unique across them.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Code reservation operations

func (s *Storage) ReserveCode(ctx context.Context, code model.LobbyCode) (bool, error) {
	return s.client.SetNX(ctx, codeKey(code), s.cfg.Owner, s.cfg.CodeTTL).Result()
}

func (s *Storage) ReleaseCode(ctx context.Context, code model.LobbyCode) error {
	return s.client.Del(ctx, codeKey(code)).Err()
}

func (s *Storage) CodeReserved(ctx context.Context, code model.LobbyCode) (bool, error) {
	n, err := s.client.Exists(ctx, codeKey(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Topic operations

func (s *Storage) GetTopics(ctx context.Context) ([]string, error) {
	key := topicsKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrTopicsNotLoaded
	}

	topics, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	// Set members come back unordered
	sort.Strings(topics)
	return topics, nil
}

func (s *Storage) SaveTopics(ctx context.Context, topics []string) error {
	key := topicsKey()

	// Replace the catalog atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)

	if len(topics) > 0 {
		members := make([]interface{}, len(topics))
		for i, t := range topics {
			members[i] = t
		}
		pipe.SAdd(ctx, key, members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}
