package kv

import (
	"context"
	"errors"
	"time"

	"spot-api/internal/logger"
	"spot-api/internal/metrics"
)

// 文档注释：指标与调试日志包装器
// 约束：透传所有调用与错误，不改变后端语义；结果按 ok/not_found/conflict/error 归类。
type instrumented struct {
	Store
	driver string
}

// Instrument：为任意后端附加指标；对已包装的存储直接返回
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s, driver: string(s.Driver())}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	metrics.KVDurationMs.WithLabelValues(s.driver, op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrConflict):
		result = "conflict"
	default:
		result = "error"
		logger.L().Warn("kv_op_error", "driver", s.driver, "op", op, "err", err)
	}
	metrics.KVOpsTotal.WithLabelValues(s.driver, op, result).Inc()
}

func (s *instrumented) Get(ctx context.Context, key string) (Entry, error) {
	t0 := time.Now()
	e, err := s.Store.Get(ctx, key)
	s.observe("get", t0, err)
	return e, err
}

func (s *instrumented) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	t0 := time.Now()
	v, err := s.Store.Put(ctx, key, value)
	s.observe("put", t0, err)
	return v, err
}

func (s *instrumented) PutMany(ctx context.Context, values map[string][]byte) error {
	t0 := time.Now()
	err := s.Store.PutMany(ctx, values)
	s.observe("put_many", t0, err)
	return err
}

func (s *instrumented) CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error) {
	t0 := time.Now()
	v, err := s.Store.CompareAndPut(ctx, key, value, expect)
	s.observe("cas", t0, err)
	return v, err
}

func (s *instrumented) Delete(ctx context.Context, keys ...string) error {
	t0 := time.Now()
	err := s.Store.Delete(ctx, keys...)
	s.observe("delete", t0, err)
	return err
}
