package permstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

var redisPermissionsKey = "wikimod/permissions"

// RedisStore keeps the snapshot log in a redis list, newest at the tail.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) Load(ctx context.Context) (*PermissionSet, error) {
	raw, err := s.Client.LIndex(ctx, redisPermissionsKey, -1).Result()
	if err == redis.Nil {
		return nil, ErrEmpty
	} else if err != nil {
		return nil, err
	}
	var p PermissionSet
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisStore) Append(ctx context.Context, p *PermissionSet) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Client.RPush(ctx, redisPermissionsKey, raw).Err()
}
