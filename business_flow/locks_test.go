package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventLockerAcquireRelease(t *testing.T) {
	locker := NewMemoryEventLocker()
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "42", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquire on the same key is refused
	ok, err = locker.Acquire(ctx, "42", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is independent
	ok, err = locker.Acquire(ctx, "43", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locker.Release(ctx, "42"))

	ok, err = locker.Acquire(ctx, "42", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryEventLockerExpiry(t *testing.T) {
	locker := NewMemoryEventLocker()
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "42", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	// The expired hold no longer blocks
	ok, err = locker.Acquire(ctx, "42", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
