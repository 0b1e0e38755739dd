// 包 memkv：进程内键值存储，用于测试与 KV_DRIVER=mem
package memkv

import (
	"context"
	"fmt"
	"sync"

	"spot-api/internal/kv"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]kv.Entry
}

func New() *Store { return &Store{data: make(map[string]kv.Entry)} }

func (s *Store) Driver() kv.Driver { return kv.DriverMemory }

func (s *Store) Close() error { return nil }

func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return kv.Entry{}, fmt.Errorf("get %s: %w", key, kv.ErrNotFound)
	}
	e.Value = append([]byte(nil), e.Value...)
	return e, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.data[key]
	return s.store(key, value, cur.Version), nil
}

func (s *Store) PutMany(ctx context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.store(k, v, s.data[k].Version)
	}
	return nil
}

func (s *Store) CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	if (!ok && expect != 0) || (ok && cur.Version != expect) {
		return 0, fmt.Errorf("put %s at %d: %w", key, expect, kv.ErrConflict)
	}
	return s.store(key, value, cur.Version), nil
}

func (s *Store) store(key string, value []byte, prev uint64) uint64 {
	e := kv.Entry{Key: key, Value: append([]byte(nil), value...), Version: prev + 1}
	s.data[key] = e
	return e.Version
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len：当前键数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
