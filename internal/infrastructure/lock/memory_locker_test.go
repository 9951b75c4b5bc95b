package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "sync:conn-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "sync:conn-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire on a held key must fail")

	// Different keys are independent.
	ok, err = l.Acquire(ctx, "sync:conn-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "sync:conn-1"))

	ok, err = l.Acquire(ctx, "sync:conn-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released key must be acquirable again")
}

func TestMemoryLockerTTLExpiry(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "sync:conn-1", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	ok, err = l.Acquire(ctx, "sync:conn-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must be reclaimable")
}
