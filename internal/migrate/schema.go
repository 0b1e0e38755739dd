package migrate

import (
	"database/sql"

	"spot-api/internal/logger"
)

// 背景：首次运行自动创建键值表；仅创建最小必需结构
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；不做存量数据迁移
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _spot_kv (
            k TEXT PRIMARY KEY,
            v BYTEA NOT NULL,
            version BIGINT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_spot_kv_updated ON _spot_kv(updated_at)`,
	}
	return exec(db, stmts)
}

// EnsureSQLiteSchema：SQLite 版本的同一结构
func EnsureSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _spot_kv (
            k TEXT PRIMARY KEY,
            v BLOB NOT NULL,
            version INTEGER NOT NULL,
            updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
	}
	return exec(db, stmts)
}

func exec(db *sql.DB, stmts []string) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
