// Package cache adapts memcached as a small key-value state store for the
// background pollers.
package cache

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

type MemcachedStateStore struct {
	mc *memcache.Client
}

func NewMemcachedStateStore(mc *memcache.Client) *MemcachedStateStore {
	return &MemcachedStateStore{mc: mc}
}

// Get returns the stored value, or "" when the key is absent. A cache miss
// is not an error; pollers treat it as a cold start.
func (s *MemcachedStateStore) Get(ctx context.Context, key string) (string, error) {
	item, err := s.mc.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", nil
		}
		return "", errors.Wrap(err, "state get failed")
	}
	return string(item.Value), nil
}

func (s *MemcachedStateStore) Set(ctx context.Context, key, value string) error {
	err := s.mc.Set(&memcache.Item{Key: key, Value: []byte(value)})
	return errors.Wrap(err, "state set failed")
}
