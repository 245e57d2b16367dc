package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("k", []byte("value"), time.Hour))

	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("k", []byte("v"), time.Hour))
	require.NoError(t, c.Delete("k"))

	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestExpiredKey(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("short", []byte("v"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, err := c.Get("short")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
