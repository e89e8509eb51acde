package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTypedRoundTrip(t *testing.T) {
	c, _, clock := newTestCache(t)
	points := NewTyped[point](c)

	require.True(t, points.Set("p", point{X: 1, Y: 2, L: "a"}, WithTTL(time.Second)))
	require.True(t, points.Exists("p"))

	got, res := points.Get("p")
	require.True(t, res.Found)
	require.Equal(t, point{X: 1, Y: 2, L: "a"}, got)

	clock.Advance(time.Second)
	got, res = points.Get("p")
	require.False(t, res.Found)
	require.ErrorIs(t, res.Err, ErrExpired)
	require.Zero(t, got)
}

func TestTypedMismatchIsMalformed(t *testing.T) {
	c, _, _ := newTestCache(t)
	require.True(t, c.Set("k", "not a number"))

	nums := NewTyped[int](c)
	got, res := nums.Get("k")
	require.False(t, res.Found)
	require.ErrorIs(t, res.Err, ErrMalformed)
	require.Zero(t, got)
	require.Equal(t, NoTTL, res.RemainingTTL)
}

func TestTypedSlices(t *testing.T) {
	c, _, _ := newTestCache(t)
	lists := NewTyped[[]string](c)

	require.True(t, lists.Set("l", []string{"a", "b"}))
	got, res := lists.Get("l")
	require.True(t, res.Found)
	require.Equal(t, []string{"a", "b"}, got)

	require.True(t, lists.Remove("l"))
	_, res = lists.Get("l")
	require.ErrorIs(t, res.Err, ErrNotFound)
}
