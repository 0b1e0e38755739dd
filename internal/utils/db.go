package utils

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：由 PG_* 变量拼接连接串；PG_DSN 非空时直接使用
func BuildPostgresDSNFromEnv() string {
	if dsn := EnvString("PG_DSN", ""); dsn != "" {
		return dsn
	}
	host := EnvString("PG_HOST", "localhost")
	port := EnvString("PG_PORT", "5432")
	user := EnvString("PG_USER", "postgres")
	pass := EnvString("PG_PASSWORD", "")
	db := EnvString("PG_DB", "spots")
	ssl := EnvString("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgres：打开连接池；连接数可由 PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS 调整
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(EnvInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(EnvInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}

func OpenPostgresFromEnv() (*sql.DB, error) { return OpenPostgres(BuildPostgresDSNFromEnv()) }
