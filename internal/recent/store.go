// Package recent keeps the bounded list of recently viewed order numbers
// that survives restarts. The list is written by whatever surface places
// orders; the tracking view only reads it and touches entries it renders.
package recent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/venueops/go-order-tracking/internal/redisx"
)

// DefaultLimit bounds the list; the oldest entry falls off first.
const DefaultLimit = 10

type Store interface {
	// List returns order numbers newest-first. A missing list is empty,
	// not an error.
	List(ctx context.Context) ([]string, error)
	// Touch moves (or inserts) an order number to the front, de-duping
	// and trimming to the bound.
	Touch(ctx context.Context, orderNumber string) error
}

// FileStore persists the list as a JSON array on disk.
type FileStore struct {
	Path  string
	Limit int

	mu sync.Mutex
}

func (s *FileStore) limit() int {
	if s.Limit > 0 {
		return s.Limit
	}
	return DefaultLimit
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() ([]string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var nums []string
	if err := json.Unmarshal(b, &nums); err != nil {
		return nil, fmt.Errorf("recent list decode: %w", err)
	}
	return nums, nil
}

func (s *FileStore) Touch(ctx context.Context, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nums, err := s.load()
	if err != nil {
		return err
	}
	out := make([]string, 0, len(nums)+1)
	out = append(out, orderNumber)
	for _, n := range nums {
		if n != orderNumber {
			out = append(out, n)
		}
	}
	if len(out) > s.limit() {
		out = out[:s.limit()]
	}

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// RedisStore keeps the list in a capped redis list, shared across devices.
type RedisStore struct {
	RDB   *redis.Client
	Owner string // device or user id, becomes part of the key
	Limit int
}

func (s *RedisStore) key() string {
	return fmt.Sprintf(redisx.KeyRecentOrders, s.Owner)
}

func (s *RedisStore) limit() int64 {
	if s.Limit > 0 {
		return int64(s.Limit)
	}
	return DefaultLimit
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	nums, err := s.RDB.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return nums, nil
}

func (s *RedisStore) Touch(ctx context.Context, orderNumber string) error {
	key := s.key()
	pipe := s.RDB.TxPipeline()
	pipe.LRem(ctx, key, 0, orderNumber)
	pipe.LPush(ctx, key, orderNumber)
	pipe.LTrim(ctx, key, 0, s.limit()-1)
	_, err := pipe.Exec(ctx)
	return err
}
