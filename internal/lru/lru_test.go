package lru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetUpdatesRecency(t *testing.T) {
	c := New[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most-recent
	c.Set("c", 3)

	_, ok := c.Get("b")
	require.False(t, ok, "b should have been evicted as least-recently-used")
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestEvictionRemovesLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](1, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.False(t, ok)
	v, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestTTLExpiry(t *testing.T) {
	c := New[string, int](10, time.Minute)
	fakeNow := time.Now()
	c.SetClock(func() time.Time { return fakeNow })
	c.Set("a", 1)

	fakeNow = fakeNow.Add(2 * time.Minute)
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestPruneRemovesOnlyExpired(t *testing.T) {
	c := New[string, int](10, time.Minute)
	fakeNow := time.Now()
	c.SetClock(func() time.Time { return fakeNow })
	c.Set("old", 1)

	fakeNow = fakeNow.Add(30 * time.Second)
	c.Set("new", 2)

	fakeNow = fakeNow.Add(45 * time.Second) // old is 75s old (expired), new is 45s (not)
	removed := c.Prune()
	require.Equal(t, 1, removed)

	_, ok := c.Get("new")
	require.True(t, ok)
}

func TestDeleteRemoves(t *testing.T) {
	c := New[string, int](10, 0)
	c.Set("a", 1)
	c.Delete("a")
	_, ok := c.Get("a")
	require.False(t, ok)
}
