package memkv

import (
	"context"
	"testing"

	"spot-api/internal/kv"
	"spot-api/internal/kv/kvtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store { return New() })
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Put(ctx, "k", []byte("abc"))
	require.NoError(t, err)

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	e.Value[0] = 'z'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Value))
	assert.Equal(t, 1, s.Len())
}
