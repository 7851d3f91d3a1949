package service

import (
	"context"
	"time"
)

// SearchCacheStore holds rendered search pages keyed by the canonical
// request. Entries are short-lived; a miss just means one extra query.
type SearchCacheStore interface {
	Get(ctx context.Context, resource, key string) ([]byte, bool, error)
	Set(ctx context.Context, resource, key string, payload []byte, ttl time.Duration) error
}

type NoopSearchCacheStore struct{}

func NewNoopSearchCacheStore() *NoopSearchCacheStore {
	return &NoopSearchCacheStore{}
}

func (s *NoopSearchCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NoopSearchCacheStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}
