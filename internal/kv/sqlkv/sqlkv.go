// 包 sqlkv：基于 database/sql 的键值存储，PostgreSQL（lib/pq）与 SQLite（modernc）共用一张 _spot_kv 表
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spot-api/internal/kv"
	"spot-api/internal/logger"
	"spot-api/internal/migrate"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// 文档注释：SQL 键值存储
// 约束：版本号在同一条语句内递增（ON CONFLICT / UPDATE ... WHERE version=?），依赖数据库行级原子性，不另加锁。
type Store struct {
	db      *sql.DB
	dialect dialect
	owned   bool
}

// OpenSQLite：打开 path 处的 SQLite 库并建表；path 为 ":memory:" 时为进程内临时库
func OpenSQLite(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join("data", "kv", "spots.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("sqlite mkdir: %w: %w", kv.ErrIO, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", kv.ErrIO, err)
	}
	// 单连接：:memory: 库按连接隔离，且 SQLite 写入本就串行
	db.SetMaxOpenConns(1)
	if err := migrate.EnsureSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w: %w", kv.ErrIO, err)
	}
	logger.L().Debug("sqlkv_open", "driver", "sqlite", "path", path)
	return &Store{db: db, dialect: dialectSQLite, owned: true}, nil
}

// AttachPostgres：在已打开的 PostgreSQL 连接池上建表并返回存储；Close 不关闭外部传入的连接池
func AttachPostgres(db *sql.DB) (*Store, error) {
	if err := migrate.EnsureSchema(db); err != nil {
		return nil, fmt.Errorf("postgres schema: %w: %w", kv.ErrIO, err)
	}
	return &Store{db: db, dialect: dialectPostgres}, nil
}

func (s *Store) Driver() kv.Driver {
	if s.dialect == dialectPostgres {
		return kv.DriverPostgres
	}
	return kv.DriverSQLite
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// rebind：将 ? 占位符改写为 PostgreSQL 的 $n
func (s *Store) rebind(q string) string {
	if s.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT v, version FROM _spot_kv WHERE k=?`), key)
	var e kv.Entry
	var ver int64
	if err := row.Scan(&e.Value, &ver); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return kv.Entry{}, fmt.Errorf("sqlkv get %s: %w", key, kv.ErrNotFound)
		}
		return kv.Entry{}, fmt.Errorf("sqlkv get %s: %w: %w", key, kv.ErrIO, err)
	}
	e.Key = key
	e.Version = uint64(ver)
	return e, nil
}

const upsertQuery = `INSERT INTO _spot_kv(k, v, version) VALUES(?, ?, 1)
        ON CONFLICT (k) DO UPDATE SET v=excluded.v, version=_spot_kv.version+1, updated_at=CURRENT_TIMESTAMP
        RETURNING version`

func (s *Store) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	var ver int64
	if err := s.db.QueryRowContext(ctx, s.rebind(upsertQuery), key, value).Scan(&ver); err != nil {
		return 0, fmt.Errorf("sqlkv put %s: %w: %w", key, kv.ErrIO, err)
	}
	return uint64(ver), nil
}

// PutMany：单个事务内逐键 upsert，任一失败整体回滚
func (s *Store) PutMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlkv put many: %w: %w", kv.ErrIO, err)
	}
	defer func() { _ = tx.Rollback() }()
	q := s.rebind(upsertQuery)
	for k, v := range values {
		var ver int64
		if err := tx.QueryRowContext(ctx, q, k, v).Scan(&ver); err != nil {
			return fmt.Errorf("sqlkv put many %s: %w: %w", k, kv.ErrIO, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlkv put many commit: %w: %w", kv.ErrIO, err)
	}
	return nil
}

func (s *Store) CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error) {
	var row *sql.Row
	if expect == 0 {
		row = s.db.QueryRowContext(ctx, s.rebind(`INSERT INTO _spot_kv(k, v, version) VALUES(?, ?, 1)
            ON CONFLICT (k) DO NOTHING RETURNING version`), key, value)
	} else {
		row = s.db.QueryRowContext(ctx, s.rebind(`UPDATE _spot_kv SET v=?, version=version+1, updated_at=CURRENT_TIMESTAMP
            WHERE k=? AND version=? RETURNING version`), value, key, int64(expect))
	}
	var ver int64
	if err := row.Scan(&ver); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sqlkv put %s at %d: %w", key, expect, kv.ErrConflict)
		}
		return 0, fmt.Errorf("sqlkv put %s: %w: %w", key, kv.ErrIO, err)
	}
	return uint64(ver), nil
}

// Delete：单条语句批量删除
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	var err error
	if s.dialect == dialectPostgres {
		_, err = s.db.ExecContext(ctx, `DELETE FROM _spot_kv WHERE k = ANY($1)`, pq.Array(keys))
	} else {
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		q := `DELETE FROM _spot_kv WHERE k IN (` + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + `)`
		_, err = s.db.ExecContext(ctx, q, args...)
	}
	if err != nil {
		return fmt.Errorf("sqlkv delete: %w: %w", kv.ErrIO, err)
	}
	return nil
}
