package service

import (
	"context"
	"testing"
	"time"
)

func TestRedisSearchCacheRoundTrip(t *testing.T) {
	_, client := newRedisClientForTest(t)
	store := NewRedisSearchCacheStore(client, "")
	ctx := context.Background()

	payload, ok, err := store.Get(ctx, "community", "p=0:s=20")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if ok || payload != nil {
		t.Fatal("expected miss on empty cache")
	}

	want := []byte(`{"items":[]}`)
	if err := store.Set(ctx, "community", "p=0:s=20", want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	payload, ok, err = store.Get(ctx, "community", "p=0:s=20")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(payload) != string(want) {
		t.Fatalf("expected cached payload, got ok=%v payload=%q", ok, payload)
	}

	// Same key under another resource is a different entry.
	_, ok, err = store.Get(ctx, "portfolio", "p=0:s=20")
	if err != nil {
		t.Fatalf("get other resource: %v", err)
	}
	if ok {
		t.Fatal("resources must not share cache entries")
	}
}

func TestRedisSearchCacheExpiry(t *testing.T) {
	server, client := newRedisClientForTest(t)
	store := NewRedisSearchCacheStore(client, "")
	ctx := context.Background()

	if err := store.Set(ctx, "community", "key", []byte("v"), time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	server.FastForward(2 * time.Second)

	_, ok, err := store.Get(ctx, "community", "key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("entry must expire with its ttl")
	}
}

func TestRedisSearchCacheNilClientIsNoop(t *testing.T) {
	store := NewRedisSearchCacheStore(nil, "")
	ctx := context.Background()

	if err := store.Set(ctx, "community", "key", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set on nil client: %v", err)
	}
	_, ok, err := store.Get(ctx, "community", "key")
	if err != nil {
		t.Fatalf("get on nil client: %v", err)
	}
	if ok {
		t.Fatal("nil client must always miss")
	}
}
