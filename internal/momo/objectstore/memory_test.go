package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "a/b.txt", []byte("hello"), "text/plain"))

	data, err := st.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	exists, err := st.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStoreGetMissingKeyReturnsErrNotFound(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreExistsFalseForMissingKey(t *testing.T) {
	st := NewMemoryStore()
	exists, err := st.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}
