// 包 saved：收藏集；持久化为 saved_spots 整块 {id: true}，内存投影供界面同步查询
package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"spot-api/internal/kv"
	"spot-api/internal/logger"
	"spot-api/internal/metrics"
)

const DefaultRetries = 3

// 文档注释：收藏集存储
// 约束：
// 1) IsSaved 只读内存投影，不访问存储；
// 2) Toggle 基于最新持久化整块翻转并带版本写回，成功后才更新投影；
// 3) 取消收藏删除该 id，持久化整块中不出现 false。
type Store struct {
	kv      kv.Store
	retries int
	log     *slog.Logger

	mu   sync.RWMutex
	proj map[string]bool
	wmu  sync.Mutex
}

type Option func(*Store)

func WithRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retries = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New：构造收藏集；投影初始为空，调用方按需 Refresh
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, retries: DefaultRetries, log: logger.L(), proj: map[string]bool{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func decodeSet(b []byte) (map[string]bool, error) {
	raw := map[string]bool{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", kv.ErrParse, err)
	}
	out := make(map[string]bool, len(raw))
	for id, v := range raw {
		if v {
			out[id] = true
		}
	}
	return out, nil
}

// Load：直接读取持久化集合，不触碰投影
func (s *Store) Load(ctx context.Context) (map[string]bool, error) {
	e, err := s.kv.Get(ctx, kv.KeySaved)
	if errors.Is(err, kv.ErrNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("saved load: %w", err)
	}
	m, err := decodeSet(e.Value)
	if err != nil {
		return nil, fmt.Errorf("saved load: %w", err)
	}
	return m, nil
}

// Refresh：从存储重建投影
// 约束：键不存在得到空集；整块损坏时投影清空并返回 kv.ErrParse；存储故障时保留旧投影。
func (s *Store) Refresh(ctx context.Context) error {
	m, err := s.Load(ctx)
	if err != nil {
		if errors.Is(err, kv.ErrParse) {
			s.replace(map[string]bool{})
		}
		s.log.Warn("saved_refresh_error", "err", err)
		return err
	}
	s.replace(m)
	return nil
}

func (s *Store) replace(m map[string]bool) {
	s.mu.Lock()
	s.proj = m
	s.mu.Unlock()
}

func (s *Store) IsSaved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proj[id]
}

// Toggle：翻转 id 的收藏状态并持久化，返回新状态
// 约束：写入失败时投影不变并返回带类型的错误；损坏的整块按空集处理。
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	var state bool
	var next map[string]bool
	_, err := kv.Update(ctx, s.kv, kv.KeySaved, s.retries, func(cur []byte, found bool) ([]byte, error) {
		m, err := decodeSet(cur)
		if err != nil {
			s.log.Warn("saved_blob_corrupt", "err", err)
			m = map[string]bool{}
		}
		state = !m[id]
		if state {
			m[id] = true
		} else {
			delete(m, id)
		}
		next = m
		return json.Marshal(m)
	})
	if err != nil {
		s.log.Warn("saved_toggle_error", "id", id, "err", err)
		return s.IsSaved(id), fmt.Errorf("saved toggle %s: %w", id, err)
	}
	s.replace(next)
	label := "unsaved"
	if state {
		label = "saved"
	}
	metrics.SavedTogglesTotal.WithLabelValues(label).Inc()
	s.log.Debug("saved_toggle_ok", "id", id, "saved", state)
	return state, nil
}

// IDs：投影中的 id，升序
func (s *Store) IDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.proj))
	for id := range s.proj {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Snapshot：投影副本
func (s *Store) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.proj))
	for id := range s.proj {
		out[id] = true
	}
	return out
}
