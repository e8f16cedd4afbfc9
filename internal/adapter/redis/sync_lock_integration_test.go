package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLock_AcquireRelease(t *testing.T) {
	client := setupTestClient(t)
	lock := NewSyncLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, acquired)

	// Second acquire while held is denied.
	acquired, err = lock.Acquire(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, acquired)

	// Other users are unaffected.
	acquired, err = lock.Acquire(ctx, "other@example.com")
	require.NoError(t, err)
	assert.True(t, acquired)

	// Release frees the lock for reacquisition.
	require.NoError(t, lock.Release(ctx, "user@example.com"))
	acquired, err = lock.Acquire(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestSyncLock_ReleaseWithoutHold(t *testing.T) {
	client := setupTestClient(t)
	lock := NewSyncLock(client)

	assert.NoError(t, lock.Release(context.Background(), "nobody@example.com"))
}
