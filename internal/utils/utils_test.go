package utils

import (
	"context"
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spot-api/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("T_STR", "  value ")
	t.Setenv("T_INT", "42")
	t.Setenv("T_BADINT", "x")
	t.Setenv("T_FLOAT", "2.5")
	t.Setenv("T_BOOL", "Yes")
	t.Setenv("T_BOOL_OFF", "nah")
	t.Setenv("T_DUR", "1500ms")
	t.Setenv("T_SECS", "3")
	t.Setenv("T_LIST", " 10.0.0.0/8, ,127.0.0.1/32 ")

	assert.Equal(t, "value", EnvString("T_STR", "d"))
	assert.Equal(t, "d", EnvString("T_UNSET", "d"))
	assert.Equal(t, 42, EnvInt("T_INT", 1))
	assert.Equal(t, 1, EnvInt("T_BADINT", 1))
	assert.Equal(t, 2.5, EnvFloat("T_FLOAT", 0))
	assert.True(t, EnvBool("T_BOOL", false))
	assert.False(t, EnvBool("T_BOOL_OFF", true))
	assert.True(t, EnvBool("T_UNSET", true))
	assert.Equal(t, 1500*time.Millisecond, EnvDuration("T_DUR", 0))
	assert.Equal(t, 3*time.Second, EnvDuration("T_SECS", 0))
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1/32"}, EnvList("T_LIST"))
	assert.Nil(t, EnvList("T_UNSET"))
}

func TestPostgresDSN(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_USER", "spots")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "")
	assert.Equal(t, "postgres://spots:pw@db:5432/spots?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_DSN", "postgres://x@y/z")
	assert.Equal(t, "postgres://x@y/z", BuildPostgresDSNFromEnv())
}

func TestOpenKVFromEnv(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cases := map[string]map[string]string{
		"mem":    {"KV_DRIVER": "mem"},
		"file":   {"KV_DRIVER": "file", "KV_FILE_PATH": filepath.Join(dir, "kv.json")},
		"sqlite": {"KV_DRIVER": "SQLite", "SQLITE_PATH": filepath.Join(dir, "kv.db")},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			s, err := OpenKVFromEnv()
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, kv.Driver(name), s.Driver())

			_, err = s.Put(ctx, kv.KeyStories, []byte(`[]`))
			require.NoError(t, err)
			e, err := s.Get(ctx, kv.KeyStories)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(e.Value))
		})
	}

	t.Setenv("KV_DRIVER", "etcd")
	_, err := OpenKVFromEnv()
	assert.Error(t, err)
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "tls", "cert.pem")
	key := filepath.Join(dir, "tls", "key.pem")

	require.NoError(t, EnsureSelfSignedCert(cert, key, "spots.local"))
	_, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)

	info, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	before, err := os.ReadFile(cert)
	require.NoError(t, err)
	require.NoError(t, EnsureSelfSignedCert(cert, key, "other"))
	after, err := os.ReadFile(cert)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
