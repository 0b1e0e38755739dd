package utils

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"spot-api/internal/kv"
	"spot-api/internal/kv/filekv"
	"spot-api/internal/kv/memkv"
	"spot-api/internal/kv/rediskv"
	"spot-api/internal/kv/sqlkv"
	"spot-api/internal/logger"
)

// pgOwned：由本工具打开的连接池随存储一起关闭
type pgOwned struct {
	*sqlkv.Store
	db *sql.DB
}

func (p pgOwned) Close() error { return p.db.Close() }

// 文档注释：按 KV_DRIVER 打开进程级键值存储
// 背景：覆盖层、收藏集、资料与故事共用一个存储实例，由入口构造后显式传入各模块。
// 约束：默认 file；返回值已附加指标包装；redis 在打开时 PING 一次，失败即返回错误。
func OpenKVFromEnv() (kv.Store, error) {
	driver := kv.Driver(strings.ToLower(EnvString("KV_DRIVER", string(kv.DriverFile))))
	s, err := openKV(driver)
	if err != nil {
		logger.L().Error("kv_open_error", "driver", driver, "err", err)
		return nil, err
	}
	logger.L().Info("kv_open_ok", "driver", driver)
	return kv.Instrument(s), nil
}

func openKV(driver kv.Driver) (kv.Store, error) {
	switch driver {
	case kv.DriverMemory:
		return memkv.New(), nil
	case kv.DriverFile:
		return filekv.New(EnvString("KV_FILE_PATH", ""))
	case kv.DriverSQLite:
		return sqlkv.OpenSQLite(EnvString("SQLITE_PATH", ""))
	case kv.DriverPostgres:
		db, err := OpenPostgresFromEnv()
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w: %w", kv.ErrIO, err)
		}
		st, err := sqlkv.AttachPostgres(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return pgOwned{Store: st, db: db}, nil
	case kv.DriverRedis:
		rc := OpenRedisFromEnv()
		st := rediskv.New(rc, EnvString("REDIS_PREFIX", ""))
		if err := st.Ping(context.Background()); err != nil {
			_ = rc.Close()
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown KV_DRIVER %q", driver)
}
