// 包 filekv：单文件 JSON 键值存储
// 约束：整个键空间保存在一个文档中；每次写入先写同目录临时文件再原子重命名，读取总是读盘。
// 仅保证单进程内的写入互斥，不适用于多进程同时写同一文件。
package filekv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"spot-api/internal/kv"
)

type record struct {
	Value   string `json:"value"`
	Version uint64 `json:"version"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

// New：打开（必要时创建目录）位于 path 的存储文件；文件不存在视为空库
func New(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join("data", "kv", "store.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("filekv mkdir: %w: %w", kv.ErrIO, err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Driver() kv.Driver { return kv.DriverFile }

func (s *Store) Close() error { return nil }

func (s *Store) Path() string { return s.path }

func (s *Store) load() (map[string]record, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filekv read: %w: %w", kv.ErrIO, err)
	}
	m := map[string]record{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("filekv decode %s: %w: %w", s.path, kv.ErrParse, err)
	}
	return m, nil
}

func (s *Store) save(m map[string]record) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("filekv encode: %w: %w", kv.ErrIO, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("filekv temp: %w: %w", kv.ErrIO, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filekv write: %w: %w", kv.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filekv sync: %w: %w", kv.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filekv close: %w: %w", kv.ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("filekv rename: %w: %w", kv.ErrIO, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return kv.Entry{}, err
	}
	r, ok := m[key]
	if !ok {
		return kv.Entry{}, fmt.Errorf("filekv get %s: %w", key, kv.ErrNotFound)
	}
	return kv.Entry{Key: key, Value: []byte(r.Value), Version: r.Version}, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	return s.write(key, value, nil)
}

// PutMany：一次读盘、一次原子替换
func (s *Store) PutMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		m[k] = record{Value: string(v), Version: m[k].Version + 1}
	}
	return s.save(m)
}

func (s *Store) CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error) {
	return s.write(key, value, &expect)
}

func (s *Store) write(key string, value []byte, expect *uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return 0, err
	}
	cur, ok := m[key]
	if expect != nil && ((!ok && *expect != 0) || (ok && cur.Version != *expect)) {
		return 0, fmt.Errorf("filekv put %s at %d: %w", key, *expect, kv.ErrConflict)
	}
	next := record{Value: string(value), Version: cur.Version + 1}
	m[key] = next
	if err := s.save(m); err != nil {
		return 0, err
	}
	return next.Version, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := m[k]; ok {
			delete(m, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(m)
}
