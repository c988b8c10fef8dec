package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrSet_LoaderInvokedOncePerTTLWindow(t *testing.T) {
	c := New[string, int](time.Minute, time.Hour)
	defer c.Destroy()

	calls := 0
	loader := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrSet("key", loader, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrSet("key", loader, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	assert.Equal(t, 1, calls, "second call within TTL should hit the cache")
}

func TestGetOrSet_ExpiredEntryInvokesLoaderAgain(t *testing.T) {
	c := New[string, int](time.Minute, time.Hour)
	defer c.Destroy()

	calls := 0
	loader := func() (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrSet("key", loader, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(20 * time.Millisecond)

	v, err = c.GetOrSet("key", loader, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestGetOrSet_LoaderErrorNotCached(t *testing.T) {
	c := New[string, int](time.Minute, time.Hour)
	defer c.Destroy()

	calls := 0
	failing := func() (int, error) {
		calls++
		return 0, errors.New("upstream unavailable")
	}

	_, err := c.GetOrSet("key", failing, time.Minute)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len(), "failures must not be stored")

	_, err = c.GetOrSet("key", failing, time.Minute)
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "each call after a failure retries the loader")
}

func TestGetOrSet_DefaultTTLUsedForZeroTTL(t *testing.T) {
	c := New[string, string](10*time.Millisecond, time.Hour)
	defer c.Destroy()

	calls := 0
	loader := func() (string, error) {
		calls++
		return "v", nil
	}

	_, err := c.GetOrSet("key", loader, 0)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = c.GetOrSet("key", loader, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	c := New[string, int](time.Minute, time.Hour)
	defer c.Destroy()

	_, err := c.GetOrSet("stale", func() (int, error) { return 1, nil }, 5*time.Millisecond)
	require.NoError(t, err)
	_, err = c.GetOrSet("live", func() (int, error) { return 2, nil }, time.Minute)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	c.sweep()

	assert.Equal(t, 1, c.Len())
}

func TestClearDropsEverything(t *testing.T) {
	c := New[string, int](time.Minute, time.Hour)
	defer c.Destroy()

	_, err := c.GetOrSet("a", func() (int, error) { return 1, nil }, time.Minute)
	require.NoError(t, err)
	_, err = c.GetOrSet("b", func() (int, error) { return 2, nil }, time.Minute)
	require.NoError(t, err)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
