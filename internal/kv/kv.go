// 包 kv：本地持久化键值存储抽象，覆盖层、收藏集、资料与故事均通过该接口读写
package kv

import (
	"context"
	"errors"
)

// Driver 标识具体的存储后端
type Driver string

const (
	DriverMemory   Driver = "mem"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// 错误分类：调用方以 errors.Is 区分“无数据”与“存储故障”
var (
	ErrNotFound = errors.New("kv: not found")
	ErrIO       = errors.New("kv: storage io")
	ErrParse    = errors.New("kv: parse")
	ErrConflict = errors.New("kv: version conflict")
)

// Entry：单键记录，Version 每次写入递增，首个版本为 1
type Entry struct {
	Key     string
	Value   []byte
	Version uint64
}

// 文档注释：键值存储接口
// 约束：
// 1) 单键写入对调用方不可分；后续读取不可见部分写入；
// 2) CompareAndPut 的 expect 为 0 表示“键必须不存在”，否则要求当前版本等于 expect，不匹配返回 ErrConflict；
// 3) Delete 对不存在的键静默成功；
// 4) PutMany 整批写入，要么全部可见要么全部不写，各键版本分别递增。
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	PutMany(ctx context.Context, values map[string][]byte) error
	CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error)
	Delete(ctx context.Context, keys ...string) error
	Driver() Driver
	Close() error
}

// GetMany：按顺序读取多个键，缺失键不出现在结果中
func GetMany(ctx context.Context, s Store, keys ...string) (map[string]Entry, error) {
	out := make(map[string]Entry, len(keys))
	for _, k := range keys {
		e, err := s.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

// 文档注释：带版本校验的读-改-写
// 背景：覆盖层与收藏集都是整块序列化，写入需基于最新版本；冲突时重新读取并再次执行 fn。
// 约束：fn 收到 found=false 时 cur 为空；fn 返回错误则立即中止且不写入；重试耗尽返回 ErrConflict。
func Update(ctx context.Context, s Store, key string, retries int, fn func(cur []byte, found bool) ([]byte, error)) (uint64, error) {
	if retries < 1 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		e, err := s.Get(ctx, key)
		found := true
		if errors.Is(err, ErrNotFound) {
			found = false
			e = Entry{}
		} else if err != nil {
			return 0, err
		}
		next, err := fn(e.Value, found)
		if err != nil {
			return 0, err
		}
		v, err := s.CompareAndPut(ctx, key, next, e.Version)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return v, err
	}
	return 0, ErrConflict
}
