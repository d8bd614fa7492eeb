package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterGet(t *testing.T) {
	r := NewRegistry(0)
	a := r.Register(10, "127.0.0.1:1000")
	b := r.Register(11, "127.0.0.1:1001")

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Session, b.Session)
	assert.Equal(t, StateAccepted, a.State())

	got, ok := r.Get(11)
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, 2, r.Len())

	_, ok = r.Get(12)
	assert.False(t, ok)
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry(0)
	r.Register(3, "")
	r.Register(4, "")
	r.Register(5, "")

	c, ok := r.Unregister(3)
	require.True(t, ok)
	assert.Equal(t, 3, c.FD())

	_, ok = r.Unregister(3)
	assert.False(t, ok)
	_, ok = r.Unregister(99)
	assert.False(t, ok)

	// 交换删除后其余条目仍可查到
	for _, fd := range []int{4, 5} {
		c, ok := r.Get(fd)
		require.True(t, ok, "fd %d", fd)
		assert.Equal(t, fd, c.FD())
	}
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_PendingStateIsPerConnection(t *testing.T) {
	r := NewRegistry(0)
	a := r.Register(1, "")
	b := r.Register(2, "")

	for range a.framer.Feed([]byte("partial")) {
	}
	r.Unregister(1)

	assert.Equal(t, 0, b.Pending())
	for line, err := range b.framer.Feed([]byte("x\n")) {
		require.NoError(t, err)
		assert.Equal(t, "x", string(line))
	}
}

func TestRegistry_AllAllowsUnregister(t *testing.T) {
	r := NewRegistry(0)
	for fd := 1; fd <= 5; fd++ {
		r.Register(fd, "")
	}
	n := 0
	for c := range r.All() {
		_, ok := r.Unregister(c.FD())
		assert.True(t, ok)
		n++
	}
	assert.Equal(t, 5, n)
	assert.Zero(t, r.Len())
}

func TestRegistry_ReplaceStaleFD(t *testing.T) {
	r := NewRegistry(0)
	old := r.Register(7, "a")
	fresh := r.Register(7, "b")
	got, ok := r.Get(7)
	require.True(t, ok)
	assert.Same(t, fresh, got)
	assert.NotSame(t, old, got)
	assert.Equal(t, 1, r.Len())
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}
