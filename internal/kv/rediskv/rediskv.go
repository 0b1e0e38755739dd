// 包 rediskv：Redis 键值存储，每个键保存为哈希 {v, ver}
package rediskv

import (
	"context"
	"errors"
	"fmt"

	"spot-api/internal/kv"

	"github.com/redis/go-redis/v9"
)

const (
	fieldValue   = "v"
	fieldVersion = "ver"
)

type Store struct {
	rc     *redis.Client
	prefix string
}

// New：prefix 为空时使用 "spot:kv:"
func New(rc *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "spot:kv:"
	}
	return &Store{rc: rc, prefix: prefix}
}

func (s *Store) Driver() kv.Driver { return kv.DriverRedis }

func (s *Store) Close() error { return s.rc.Close() }

func (s *Store) key(k string) string { return s.prefix + k }

// Ping：检查连接可用
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rc.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", kv.ErrIO, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	res, err := s.rc.HMGet(ctx, s.key(key), fieldValue, fieldVersion).Result()
	if err != nil {
		return kv.Entry{}, fmt.Errorf("redis get %s: %w: %w", key, kv.ErrIO, err)
	}
	if len(res) != 2 || res[0] == nil {
		return kv.Entry{}, fmt.Errorf("redis get %s: %w", key, kv.ErrNotFound)
	}
	v, _ := res[0].(string)
	var ver uint64
	if raw, ok := res[1].(string); ok {
		if _, err := fmt.Sscan(raw, &ver); err != nil {
			return kv.Entry{}, fmt.Errorf("redis version %s: %w: %w", key, kv.ErrParse, err)
		}
	}
	return kv.Entry{Key: key, Value: []byte(v), Version: ver}, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	k := s.key(key)
	var incr *redis.IntCmd
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldValue, value)
		incr = pipe.HIncrBy(ctx, k, fieldVersion, 1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis put %s: %w: %w", key, kv.ErrIO, err)
	}
	return uint64(incr.Val()), nil
}

// PutMany：同一个 MULTI/EXEC 事务写入全部键
func (s *Store) PutMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			k := s.key(key)
			pipe.HSet(ctx, k, fieldValue, value)
			pipe.HIncrBy(ctx, k, fieldVersion, 1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put many: %w: %w", kv.ErrIO, err)
	}
	return nil
}

var errMismatch = errors.New("version mismatch")

// 文档注释：WATCH + MULTI 乐观锁写入
// 约束：被监视键在事务提交前被其他客户端修改时 EXEC 失败（redis.TxFailedErr），统一映射为 ErrConflict。
func (s *Store) CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error) {
	k := s.key(key)
	var incr *redis.IntCmd
	err := s.rc.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, k, fieldVersion).Uint64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != expect {
			return errMismatch
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldValue, value)
			incr = pipe.HIncrBy(ctx, k, fieldVersion, 1)
			return nil
		})
		return err
	}, k)
	switch {
	case err == nil:
		return uint64(incr.Val()), nil
	case errors.Is(err, errMismatch), errors.Is(err, redis.TxFailedErr):
		return 0, fmt.Errorf("redis put %s at %d: %w", key, expect, kv.ErrConflict)
	default:
		return 0, fmt.Errorf("redis put %s: %w: %w", key, kv.ErrIO, err)
	}
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = s.key(k)
	}
	if err := s.rc.Del(ctx, ks...).Err(); err != nil {
		return fmt.Errorf("redis delete: %w: %w", kv.ErrIO, err)
	}
	return nil
}
