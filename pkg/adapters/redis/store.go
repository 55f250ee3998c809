package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/signoff/internal/dto"
	"github.com/aretw0/signoff/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.InstanceStore using Redis.
type Store struct {
	client *backend.Client
	opts   options
}

// New creates a new Redis instance store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis instance store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	return &Store{client: client, opts: newOptions(opts)}
}

// Client exposes the underlying client so history, workflows and the locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.opts.prefix + "instance:" + id
}

func (s *Store) indexKey() string {
	return s.opts.prefix + "instance:index"
}

// Save persists the instance and indexes it.
func (s *Store) Save(ctx context.Context, instance *domain.Instance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(instance.ID), data, s.opts.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  s.opts.score(time.Now()),
		Member: instance.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the instance from Redis.
func (s *Store) Get(ctx context.Context, id string) (*domain.Instance, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return dto.UnmarshalInstance(val)
}

// List returns indexed instance ids, pruning expired entries lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired instances: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
