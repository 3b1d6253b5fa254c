package profanity

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VandalStore remembers usernames that recently tripped vandalism detection.
// Consulted by the nuke permission gate: an editor may only nuke a brand-new
// account that appears here.
type VandalStore interface {
	Add(ctx context.Context, username string) error
	Contains(ctx context.Context, username string) (bool, error)
}

// MemVandalStore lives for the process lifetime.
type MemVandalStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemVandalStore() *MemVandalStore {
	return &MemVandalStore{seen: make(map[string]bool)}
}

func (s *MemVandalStore) Add(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[username] = true
	return nil
}

func (s *MemVandalStore) Contains(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[username], nil
}

var redisVandalsKey = "wikimod/recent-vandals"

// RedisVandalStore shares the recent-vandals set across restarts. Entries
// expire with the set after 48h of no new detections.
type RedisVandalStore struct {
	Client *redis.Client
}

func NewRedisVandalStore(redisURL string) (*RedisVandalStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisVandalStore{Client: rdb}, nil
}

func (s *RedisVandalStore) Add(ctx context.Context, username string) error {
	multi := s.Client.Pipeline()
	multi.SAdd(ctx, redisVandalsKey, username)
	multi.Expire(ctx, redisVandalsKey, 48*time.Hour)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisVandalStore) Contains(ctx context.Context, username string) (bool, error) {
	return s.Client.SIsMember(ctx, redisVandalsKey, username).Result()
}
