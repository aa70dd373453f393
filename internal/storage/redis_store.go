package storage

import (
	"context"

	"github.com/redis/go-redis/v9"

	"git.home.luguber.info/inful/watertracker/internal/config"
	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// RedisStore keeps the namespace as one redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, namespace string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, derrors.StoreUnavailable("redis", err).WithContext("addr", cfg.Addr)
	}
	return NewRedisStoreWithClient(client, namespace), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, key: namespace}
}

func (r *RedisStore) Get(ctx context.Context) (counter.State, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return counter.State{}, derrors.StoreFailed("redis", "get", err)
	}
	return stateFromFields(fields), nil
}

// Set writes both fields with a single HSET.
func (r *RedisStore) Set(ctx context.Context, st counter.State) error {
	values := make(map[string]any, 2)
	for k, v := range fieldsFromState(st) {
		values[k] = v
	}
	if err := r.client.HSet(ctx, r.key, values).Err(); err != nil {
		return derrors.StoreFailed("redis", "set", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
