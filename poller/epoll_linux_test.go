//go:build linux

package poller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type recorder struct {
	mu       sync.Mutex
	readable []FD
	closed   []FD
	onRead   func(fd FD)
}

func (r *recorder) OnReadable(fd FD) {
	if r.onRead != nil {
		r.onRead(fd)
	}
	r.mu.Lock()
	r.readable = append(r.readable, fd)
	r.mu.Unlock()
}

func (r *recorder) OnClose(fd FD, err error) {
	r.mu.Lock()
	r.closed = append(r.closed, fd)
	r.mu.Unlock()
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.readable), len(r.closed)
}

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestEpoll_ReadableAndStop(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	a, b := socketPair(t)
	require.NoError(t, p.Register(a))

	rec := &recorder{onRead: func(fd FD) {
		var buf [64]byte
		for {
			if _, err := unix.Read(fd, buf[:]); err != nil {
				return
			}
		}
	}}
	done := make(chan error, 1)
	go func() { done <- p.Run(rec) }()

	_, err = unix.Write(b, []byte("hello\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, _ := rec.counts()
		return n >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestEpoll_PeerCloseReportsReadable(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	a, b := socketPair(t)
	require.NoError(t, p.Register(a))

	rec := &recorder{}
	done := make(chan error, 1)
	go func() { done <- p.Run(rec) }()

	require.NoError(t, unix.Shutdown(b, unix.SHUT_WR))
	require.Eventually(t, func() bool {
		n, _ := rec.counts()
		return n >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Unregister(a))
	require.NoError(t, p.Stop())
	require.NoError(t, <-done)
}

func TestEpoll_CloseTwice(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
