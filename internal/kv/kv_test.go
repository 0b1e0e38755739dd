package kv_test

import (
	"context"
	"errors"
	"testing"

	"spot-api/internal/kv"
	"spot-api/internal/kv/memkv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racer bumps the key behind the caller's back before each compare-and-put.
type racer struct {
	kv.Store
	remaining int
}

func (r *racer) CompareAndPut(ctx context.Context, key string, value []byte, expect uint64) (uint64, error) {
	if r.remaining > 0 {
		r.remaining--
		if _, err := r.Store.Put(ctx, key, []byte("other")); err != nil {
			return 0, err
		}
	}
	return r.Store.CompareAndPut(ctx, key, value, expect)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	s := &racer{Store: memkv.New(), remaining: 2}
	calls := 0
	v, err := kv.Update(ctx, s, "k", 3, func(cur []byte, found bool) ([]byte, error) {
		calls++
		return []byte("mine"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, uint64(3), v)
}

func TestUpdateGivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	s := &racer{Store: memkv.New(), remaining: 10}
	_, err := kv.Update(ctx, s, "k", 2, func(cur []byte, found bool) ([]byte, error) {
		return []byte("mine"), nil
	})
	assert.ErrorIs(t, err, kv.ErrConflict)
}

func TestUpdateAbortsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	s := memkv.New()
	boom := errors.New("boom")
	_, err := kv.Update(ctx, s, "k", 3, func(cur []byte, found bool) ([]byte, error) {
		assert.False(t, found)
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestInstrumentPassesThrough(t *testing.T) {
	ctx := context.Background()
	s := kv.Instrument(memkv.New())
	assert.Same(t, s, kv.Instrument(s))
	assert.Equal(t, kv.DriverMemory, s.Driver())

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = s.Put(ctx, "k", []byte("v"))
	require.NoError(t, err)
	_, err = s.CompareAndPut(ctx, "k", []byte("w"), 9)
	assert.ErrorIs(t, err, kv.ErrConflict)
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestAllKeysCoversLayout(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"profileName", "profilePhoto", "notificationsEnabled", "saved_spots", "spot_overrides", "stories",
	}, kv.AllKeys())
}
