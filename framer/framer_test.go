package framer

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, f *Framer, p []byte) []string {
	t.Helper()
	var out []string
	for line, err := range f.Feed(p) {
		require.NoError(t, err)
		out = append(out, string(line))
	}
	return out
}

func TestFeed_SplitRecord(t *testing.T) {
	f := New(0)

	assert.Empty(t, collect(t, f, []byte("SELEC")))
	assert.Equal(t, "SELEC", string(f.Pending()))

	assert.Equal(t, []string{"SELECT 1"}, collect(t, f, []byte("T 1\n")))
	assert.Zero(t, f.Len())
}

func TestFeed_MultipleRecordsInOneRead(t *testing.T) {
	f := New(0)
	assert.Equal(t, []string{"A", "B", "C"}, collect(t, f, []byte("A\nB\nC\n")))
	assert.Zero(t, f.Len())
}

func TestFeed_EmptyLines(t *testing.T) {
	f := New(0)
	assert.Equal(t, []string{"", ""}, collect(t, f, []byte("\n\n")))
}

func TestFeed_KeepsCarriageReturn(t *testing.T) {
	f := New(0)
	assert.Equal(t, []string{"a\r", "b"}, collect(t, f, []byte("a\r\nb\nc\r")))
	assert.Equal(t, "c\r", string(f.Pending()))
}

func TestFeed_BinarySafe(t *testing.T) {
	f := New(0)
	got := collect(t, f, []byte{0x00, 0xff, 'x', '\n', 0x01})
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x00, 0xff, 'x'}, []byte(got[0]))
	assert.Equal(t, []byte{0x01}, f.Pending())
}

func TestFeed_ArbitraryChunking(t *testing.T) {
	stream := []byte("INSERT INTO t VALUES (1)\n\nSELECT * FROM t\nUPDATE t SET a = 2\r\npartial tail")
	wantLines := bytes.Split(stream, []byte{'\n'})
	wantTail := wantLines[len(wantLines)-1]
	wantLines = wantLines[:len(wantLines)-1]

	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 200; round++ {
		f := New(0)
		var got [][]byte
		for rest := stream; len(rest) > 0; {
			n := 1 + rnd.Intn(len(rest))
			for line, err := range f.Feed(rest[:n]) {
				require.NoError(t, err)
				got = append(got, bytes.Clone(line))
			}
			rest = rest[n:]
		}
		require.Equal(t, len(wantLines), len(got), "round %d", round)
		for i := range wantLines {
			assert.Equal(t, string(wantLines[i]), string(got[i]), "round %d line %d", round, i)
		}
		assert.Equal(t, string(wantTail), string(f.Pending()), "round %d", round)
	}
}

func TestFeed_BreakLeavesRemainderPending(t *testing.T) {
	f := New(0)
	for line, err := range f.Feed([]byte("one\ntwo\nthree\n")) {
		require.NoError(t, err)
		assert.Equal(t, "one", string(line))
		break
	}
	assert.Equal(t, "two\nthree\n", string(f.Pending()))

	assert.Equal(t, []string{"two", "three"}, collect(t, f, nil))
}

func TestFeed_NotRangedKeepsBytes(t *testing.T) {
	f := New(0)
	_ = f.Feed([]byte("a\n"))
	assert.Equal(t, []string{"a", "b"}, collect(t, f, []byte("b\n")))
}

func TestFeed_LineTooLong(t *testing.T) {
	f := New(4)

	var lines []string
	var gotErr error
	for line, err := range f.Feed([]byte("ok\n12345")) {
		if err != nil {
			gotErr = err
			break
		}
		lines = append(lines, string(line))
	}
	assert.Equal(t, []string{"ok"}, lines)
	assert.ErrorIs(t, gotErr, ErrLineTooLong)
}

func TestFeed_LimitIsPerLine(t *testing.T) {
	f := New(4)
	// 单次读取远超上限，但每行都在上限内
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, collect(t, f, []byte("aaaa\nbbbb\ncccc\ndd")))
	assert.Equal(t, "dd", string(f.Pending()))
}

// feedAll 按给定分块喂入，返回产出的行与遇到的第一个错误
func feedAll(f *Framer, chunks ...string) ([]string, error) {
	var lines []string
	for _, c := range chunks {
		for line, err := range f.Feed([]byte(c)) {
			if err != nil {
				return lines, err
			}
			lines = append(lines, string(line))
		}
	}
	return lines, nil
}

func TestFeed_LimitIndependentOfChunking(t *testing.T) {
	const stream = "ok\n0123456789\nnext\n"
	splits := [][]string{
		{stream},
		{"ok\n012345678", "9\nnext\n"},
		{"ok\n0123", "456789\n", "next\n"},
		{"o", "k\n0", "123456789", "\nnext\n"},
	}
	for _, chunks := range splits {
		lines, err := feedAll(New(8), chunks...)
		assert.Equal(t, []string{"ok"}, lines, "chunks %q", chunks)
		assert.ErrorIs(t, err, ErrLineTooLong, "chunks %q", chunks)
	}

	// 恰好等于上限的行被接受
	lines, err := feedAll(New(8), "01234567\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"01234567"}, lines)
	lines, err = feedAll(New(8), "0123", "4567", "\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"01234567"}, lines)
}

func TestReset(t *testing.T) {
	f := New(0)
	collect(t, f, []byte("dangling"))
	f.Reset()
	assert.Zero(t, f.Len())
	assert.Equal(t, []string{"x"}, collect(t, f, []byte("x\n")))
}
