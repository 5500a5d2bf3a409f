package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vietddude/authguard/internal/infra/storage"
	"github.com/vietddude/authguard/internal/infra/storage/memory"
)

// ErrInjected is returned by FlakyStore when a failure is switched on.
var ErrInjected = errors.New("injected storage failure")

// FlakyStore is a memory store with switchable failures.
type FlakyStore struct {
	*memory.Store

	mu             sync.Mutex
	FailList       bool
	FailDeleteMany bool
	FailDelete     map[string]bool
	DeleteManyHits int
}

// NewFlakyStore seeds a store with keys (value = key).
func NewFlakyStore(t *testing.T, keys ...string) *FlakyStore {
	t.Helper()
	s := &FlakyStore{Store: memory.NewStore(), FailDelete: make(map[string]bool)}
	for _, k := range keys {
		if err := s.Store.Set(context.Background(), k, k); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	return s
}

func (s *FlakyStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	fail := s.FailList
	s.mu.Unlock()
	if fail {
		return nil, storage.IOError("list keys", ErrInjected)
	}
	return s.Store.ListKeys(ctx)
}

func (s *FlakyStore) DeleteMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	s.DeleteManyHits++
	fail := s.FailDeleteMany
	s.mu.Unlock()
	if fail {
		return storage.IOError("delete many", ErrInjected)
	}
	return s.Store.DeleteMany(ctx, keys)
}

func (s *FlakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.FailDelete[key]
	s.mu.Unlock()
	if fail {
		return storage.IOError("delete", ErrInjected)
	}
	return s.Store.Delete(ctx, key)
}

// Has reports whether key is still stored.
func (s *FlakyStore) Has(key string) bool {
	_, err := s.Store.Get(context.Background(), key)
	return err == nil
}
