package sqlkv

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"spot-api/internal/kv"
	"spot-api/internal/kv/kvtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, kv.DriverSQLite, s.Driver())
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: dialectPostgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &Store{dialect: dialectSQLite}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

// PG_TEST_DSN=postgres://postgres@127.0.0.1:5432/spots_test?sslmode=disable
func TestPostgresConformance(t *testing.T) {
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	kvtest.Run(t, func(t *testing.T) kv.Store {
		s, err := AttachPostgres(db)
		require.NoError(t, err)
		_, err = db.Exec(`TRUNCATE _spot_kv`)
		require.NoError(t, err)
		assert.Equal(t, kv.DriverPostgres, s.Driver())
		return s
	})
}
