package inflight

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_RejectsSecondHolder(t *testing.T) {
	g := NewGuard()

	release, ok := g.TryAcquire("doc-1")
	require.True(t, ok)
	assert.True(t, g.Held("doc-1"))

	_, ok = g.TryAcquire("doc-1")
	assert.False(t, ok)

	_, ok = g.TryAcquire("doc-2")
	assert.True(t, ok)

	release()
	assert.False(t, g.Held("doc-1"))

	_, ok = g.TryAcquire("doc-1")
	assert.True(t, ok)
}

func TestGuard_LongHolderKeepsKey(t *testing.T) {
	g := NewGuard()

	release, ok := g.TryAcquire("corpus")
	require.True(t, ok)
	defer release()

	time.Sleep(120 * time.Millisecond)

	_, ok = g.TryAcquire("corpus")
	assert.False(t, ok)
	assert.True(t, g.Held("corpus"))
}

func TestGuard_StaleReleaseKeepsNewHolder(t *testing.T) {
	g := NewGuard()

	releaseA, ok := g.TryAcquire("doc")
	require.True(t, ok)
	releaseA()

	releaseB, ok := g.TryAcquire("doc")
	require.True(t, ok)

	// a second release from the first holder must not free the key
	releaseA()
	assert.True(t, g.Held("doc"))

	_, ok = g.TryAcquire("doc")
	assert.False(t, ok)

	releaseB()
	releaseB()
	assert.False(t, g.Held("doc"))
}

func TestGuard_ConcurrentAcquire(t *testing.T) {
	g := NewGuard()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := g.TryAcquire("doc"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
