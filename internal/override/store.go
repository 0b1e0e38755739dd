package override

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"spot-api/internal/catalog"
	"spot-api/internal/kv"
	"spot-api/internal/logger"
	"spot-api/internal/metrics"
)

// DefaultRetries：单次写入的最大尝试次数（含首次）
const DefaultRetries = 3

// 文档注释：覆盖层存储
// 背景：全部补丁序列化为 spot_overrides 单个整块；写入是“读取-合并-带版本写回”。
// 约束：
// 1) 进程内写入由互斥锁串行化，跨进程由版本比较写入防止慢写覆盖快写；
// 2) 冲突时基于最新整块重新合并，超过重试次数返回 kv.ErrConflict；
// 3) 存储层不做字段校验，调用方负责按编辑策略构造补丁。
type Store struct {
	kv      kv.Store
	retries int
	log     *slog.Logger
	mu      sync.Mutex
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

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, retries: DefaultRetries, log: logger.L()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func decodeBlob(b []byte) (map[string]Patch, error) {
	m := map[string]Patch{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", kv.ErrParse, err)
	}
	if m == nil {
		m = map[string]Patch{}
	}
	return m, nil
}

// All：读取全部补丁；键不存在时返回空映射
func (s *Store) All(ctx context.Context) (map[string]Patch, error) {
	e, err := s.kv.Get(ctx, kv.KeyOverrides)
	if errors.Is(err, kv.ErrNotFound) {
		return map[string]Patch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("override all: %w", err)
	}
	m, err := decodeBlob(e.Value)
	if err != nil {
		return nil, fmt.Errorf("override all: %w", err)
	}
	return m, nil
}

// Get：读取单个地点的补丁
// 约束：无补丁返回 kv.ErrNotFound；存储故障包装 kv.ErrIO；整块损坏包装 kv.ErrParse。
func (s *Store) Get(ctx context.Context, id string) (Patch, error) {
	m, err := s.All(ctx)
	if err != nil {
		return Patch{}, fmt.Errorf("override get %s: %w", id, err)
	}
	p, ok := m[id]
	if !ok {
		return Patch{}, fmt.Errorf("override get %s: %w", id, kv.ErrNotFound)
	}
	return p, nil
}

// Lookup：Get 的宽松版本，任何失败都视为无补丁
func (s *Store) Lookup(ctx context.Context, id string) Patch {
	p, err := s.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("override_lookup_error", "id", id, "err", err)
		}
		return Patch{}
	}
	return p
}

// Set：把 fields 字段级合并进 id 的补丁并整体写回；返回 nil 表示已持久化
// 约束：fields 为空时不访问存储；已损坏的整块按空处理并被覆盖。
func (s *Store) Set(ctx context.Context, id string, fields Patch) error {
	if fields.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := kv.Update(ctx, s.kv, kv.KeyOverrides, s.retries, func(cur []byte, found bool) ([]byte, error) {
		m, err := decodeBlob(cur)
		if err != nil {
			s.log.Warn("override_blob_corrupt", "err", err)
			m = map[string]Patch{}
		}
		m[id] = m[id].Merge(fields)
		return json.Marshal(m)
	})
	switch {
	case err == nil:
		metrics.OverrideWritesTotal.WithLabelValues("ok").Inc()
		s.log.Debug("override_set_ok", "id", id, "fields", fields.Fields())
		return nil
	case errors.Is(err, kv.ErrConflict):
		metrics.OverrideWritesTotal.WithLabelValues("conflict").Inc()
		metrics.OverrideConflictsTotal.Inc()
	default:
		metrics.OverrideWritesTotal.WithLabelValues("error").Inc()
	}
	s.log.Warn("override_set_error", "id", id, "err", err)
	return fmt.Errorf("override set %s: %w", id, err)
}

// Delete：移除 id 的补丁，恢复目录值；无补丁时静默成功
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := kv.Update(ctx, s.kv, kv.KeyOverrides, s.retries, func(cur []byte, found bool) ([]byte, error) {
		m, err := decodeBlob(cur)
		if err != nil {
			m = map[string]Patch{}
		}
		delete(m, id)
		return json.Marshal(m)
	})
	if err != nil {
		return fmt.Errorf("override delete %s: %w", id, err)
	}
	return nil
}

// Decorate：把 id 的补丁叠加到 spot 上，返回新记录
// 约束：文本字段仅在补丁值去空白后非空时生效；评分补丁总是生效；读取失败回退到目录值。
func (s *Store) Decorate(ctx context.Context, spot catalog.Spot) Decorated {
	p, err := s.Get(ctx, spot.ID)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("override_decorate_error", "id", spot.ID, "err", err)
		}
		return Decorated{Spot: spot.Clone()}
	}
	return Apply(spot, p, true)
}

// DecorateAll：一次读取补丁快照，按输入顺序逐一叠加
func (s *Store) DecorateAll(ctx context.Context, spots []catalog.Spot) []Decorated {
	m, err := s.All(ctx)
	if err != nil {
		s.log.Warn("override_decorate_error", "count", len(spots), "err", err)
		m = map[string]Patch{}
	}
	out := make([]Decorated, len(spots))
	for i, sp := range spots {
		p, ok := m[sp.ID]
		out[i] = Apply(sp, p, ok)
	}
	return out
}

// Apply：纯函数叠加，found 为 false 时原样返回副本
func Apply(spot catalog.Spot, p Patch, found bool) Decorated {
	d := Decorated{Spot: spot.Clone(), Edited: found && !p.IsEmpty()}
	if !found {
		return d
	}
	if v, ok := nonBlank(p.Title); ok {
		d.Title = v
	}
	if v, ok := nonBlank(p.Description); ok {
		d.Description = v
	}
	if v, ok := nonBlank(p.CategoryLabel); ok {
		d.CategoryLabel = v
	}
	if p.Rating != nil {
		d.Rating = *p.Rating
	}
	return d
}

func nonBlank(v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}
