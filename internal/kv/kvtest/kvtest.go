// Package kvtest runs the same behavioural checks against every kv backend.
package kvtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"spot-api/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s. Each backend test hands in a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("put then get round trips and bumps version", func(t *testing.T) {
		s := newStore(t)
		v1, err := s.Put(ctx, "k", []byte(`{"a":1}`))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), v1)

		v2, err := s.Put(ctx, "k", []byte(`{"a":2}`))
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v2)

		e, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `{"a":2}`, string(e.Value))
		assert.Equal(t, uint64(2), e.Version)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(ctx, "blank", []byte(""))
		require.NoError(t, err)
		e, err := s.Get(ctx, "blank")
		require.NoError(t, err)
		assert.Empty(t, e.Value)
	})

	t.Run("compare and put", func(t *testing.T) {
		s := newStore(t)
		v, err := s.CompareAndPut(ctx, "c", []byte("one"), 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), v)

		_, err = s.CompareAndPut(ctx, "c", []byte("dup"), 0)
		assert.ErrorIs(t, err, kv.ErrConflict)

		_, err = s.CompareAndPut(ctx, "c", []byte("stale"), 7)
		assert.ErrorIs(t, err, kv.ErrConflict)

		v, err = s.CompareAndPut(ctx, "c", []byte("two"), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v)

		_, err = s.CompareAndPut(ctx, "absent", []byte("x"), 3)
		assert.ErrorIs(t, err, kv.ErrConflict)

		e, err := s.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "two", string(e.Value))
	})

	t.Run("delete removes keys and ignores missing ones", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"a", "b", "c"} {
			_, err := s.Put(ctx, k, []byte(k))
			require.NoError(t, err)
		}
		require.NoError(t, s.Delete(ctx, "a", "b", "zzz"))
		_, err := s.Get(ctx, "a")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		_, err = s.Get(ctx, "b")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		e, err := s.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "c", string(e.Value))
		require.NoError(t, s.Delete(ctx))
	})

	t.Run("put many writes every key in one batch", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(ctx, "name", []byte("old"))
		require.NoError(t, err)
		require.NoError(t, s.PutMany(ctx, map[string][]byte{"name": []byte("Mia"), "photo": []byte("")}))

		e, err := s.Get(ctx, "name")
		require.NoError(t, err)
		assert.Equal(t, "Mia", string(e.Value))
		assert.Equal(t, uint64(2), e.Version)
		e, err = s.Get(ctx, "photo")
		require.NoError(t, err)
		assert.Empty(t, e.Value)
		assert.Equal(t, uint64(1), e.Version)

		require.NoError(t, s.PutMany(ctx, nil))
	})

	t.Run("get many skips missing keys", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(ctx, "x", []byte("1"))
		require.NoError(t, err)
		got, err := kv.GetMany(ctx, s, "x", "y")
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, "1", string(got["x"].Value))
	})

	t.Run("concurrent updates do not lose writes", func(t *testing.T) {
		s := newStore(t)
		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := kv.Update(ctx, s, "counter", 100, func(cur []byte, found bool) ([]byte, error) {
					return append(cur, []byte(fmt.Sprintf("%d;", i))...), nil
				})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		e, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, uint64(n), e.Version)
		for i := 0; i < n; i++ {
			assert.Contains(t, string(e.Value), fmt.Sprintf("%d;", i))
		}
	})
}
