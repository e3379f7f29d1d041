package storage

import (
	"context"
	"testing"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCache_SingleFlight(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// Unknown files start idle.
	status, err := store.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusIdle, status)

	ok, err := store.TryAcquire(ctx, "file-1")
	require.NoError(t, err)
	assert.True(t, ok)

	status, err = store.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzing, status)

	// A second acquire while analyzing must lose.
	ok, err = store.TryAcquire(ctx, "file-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other files are unaffected.
	ok, err = store.TryAcquire(ctx, "file-2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, "file-1"))

	status, err = store.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusIdle, status)

	ok, err = store.TryAcquire(ctx, "file-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatusCache_ReleaseWithoutAcquire(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Release(ctx, "file-1"))

	status, err := store.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusIdle, status)
}
