package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	s := NewLocalStore()
	ctx := context.Background()

	_, found, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetItem(ctx, "k", []byte("v1")))
	got, found, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", string(got))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.RemoveItem(ctx, "k"))
	require.NoError(t, s.RemoveItem(ctx, "k"))
	assert.Zero(t, s.Len())
}

func TestLocalStore_CopiesValues(t *testing.T) {
	s := NewLocalStore()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, s.SetItem(ctx, "k", in))
	in[0] = 'x'

	got, _, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _, _ := s.GetItem(ctx, "k")
	assert.Equal(t, "abc", string(again))
}
