package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() map[string]bool {
	return map[string]bool{"FirstName": true, "Email": false}
}

func TestCachedTypeComputesOnce(t *testing.T) {
	c := New(100, testPolicy())
	calls := 0
	compute := func() (string, error) {
		calls++
		return "synthetic", nil
	}

	v, err := c.GetOrCreate("FirstName", "Jane", compute)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", v)

	v, err = c.GetOrCreate("FirstName", "Jane", compute)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", v)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestNeverCachedTypeNeverStores(t *testing.T) {
	c := New(100, testPolicy())
	calls := 0
	for i := 0; i < 5; i++ {
		v, err := c.GetOrCreate("Email", "jane@x.com", func() (string, error) {
			calls++
			return fmt.Sprintf("v%d", calls), nil
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v%d", i+1), v)
	}
	assert.Equal(t, 5, calls)
	assert.Nil(t, c.Snapshot("Email"))
	assert.Equal(t, int64(5), c.Stats().Passthrough)
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := New(100, testPolicy())
	boom := errors.New("boom")
	_, err := c.GetOrCreate("FirstName", "Jane", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrCreate("FirstName", "Jane", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFullCacheDegradesToPassthrough(t *testing.T) {
	c := New(2, testPolicy())
	for i := 0; i < 2; i++ {
		_, err := c.GetOrCreate("FirstName", fmt.Sprintf("name%d", i), func() (string, error) {
			return fmt.Sprintf("cached%d", i), nil
		})
		require.NoError(t, err)
	}

	// the bound is reached: new keys are recomputed every time but old
	// entries stay authoritative
	calls := 0
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("FirstName", "overflow", func() (string, error) {
			calls++
			return "computed", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "computed", v)
	}
	assert.Equal(t, 3, calls)

	v, err := c.GetOrCreate("FirstName", "name0", func() (string, error) {
		t.Fatal("cached entry must not be recomputed")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached0", v)
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestConcurrentSingleFlight(t *testing.T) {
	c := New(100, testPolicy())
	var calls atomic.Int64
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrCreate("FirstName", "Jane", func() (string, error) {
				calls.Add(1)
				return "only-once", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "only-once", v)
		}()
	}
	close(start)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int64(2), "concurrent callers must share a flight")
	assert.Equal(t, 1, c.Stats().Entries)
}
