package flight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuardSingleWinner(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := guard.Acquire(ctx, "capture:ord-1")
			require.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryGuardKeysIndependent(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "create:sess-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = guard.Acquire(ctx, "create:sess-b")
	require.NoError(t, err)
	assert.True(t, ok, "a busy session must not block others")
}

func TestMemoryGuardReleaseReopensKey(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	ok, _ := guard.Acquire(ctx, "k")
	require.True(t, ok)

	ok, _ = guard.Acquire(ctx, "k")
	require.False(t, ok)

	guard.Release(ctx, "k")
	ok, _ = guard.Acquire(ctx, "k")
	assert.True(t, ok)
}
