package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoldenBitsSoftware/authlib-linux/errs"
)

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool()
	id, err := p.Acquire()
	require.NoError(t, err)
	require.GreaterOrEqual(t, id, 0)
	require.Less(t, id, MaxConcurrentSessions)

	p.Release(id)
	id2, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, id, id2, "the released slot should be handed back out")
}

func TestPoolExhaustionReturnsNoResource(t *testing.T) {
	p := NewPool()
	ids := make([]int, 0, MaxConcurrentSessions)
	for i := 0; i < MaxConcurrentSessions; i++ {
		id, err := p.Acquire()
		require.NoError(t, err)
		ids = append(ids, id)
	}

	_, err := p.Acquire()
	require.Error(t, err)
	code, ok := errs.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, errs.NoResource, code)

	p.Release(ids[0])
	_, err = p.Acquire()
	require.NoError(t, err)
}

func TestPoolAcquireDistinctIDs(t *testing.T) {
	p := NewPool()
	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		id, err := p.Acquire()
		require.NoError(t, err)
		require.False(t, seen[id], "id %d handed out twice", id)
		seen[id] = true
	}
}
