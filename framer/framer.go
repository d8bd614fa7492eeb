// Package framer 按 '\n' 将连接字节流切分为记录。
//
// 每条连接一个 Framer：Feed 追加新读到的字节并按到达顺序产出完整行，
// 未终结的尾部留在缓冲中等待下一次 Feed。行不含 '\n'，其余字节（包括 '\r'）原样保留。
package framer

import (
	"bytes"
	"errors"
	"iter"
)

// Delim 是记录分隔符
const Delim = '\n'

// ErrLineTooLong 某行（不含分隔符）超过了 maxLine
var ErrLineTooLong = errors.New("framer: line exceeds limit")

// Framer 保存一条连接尚未组成完整行的字节。非并发安全，由 poller 线程独占。
type Framer struct {
	buf  []byte
	scan int // buf[:scan] 中已确认没有分隔符
	max  int
}

// New 返回一个 Framer；maxLine <= 0 表示不限制未终结行的长度。
func New(maxLine int) *Framer {
	return &Framer{max: maxLine}
}

// Feed 追加 p 并返回当前可用的完整行。
// 序列是惰性且一次性的：只在调用方 range 时切行，提前 break 的剩余行留待下次 Feed。
// 产出的切片引用内部缓冲，仅在下一次调用前有效。
// 任何一行（无论是否已终结）超过上限时产出 (nil, ErrLineTooLong) 并结束，
// 结果与字节如何分块到达无关。
func (f *Framer) Feed(p []byte) iter.Seq2[[]byte, error] {
	f.buf = append(f.buf, p...)
	return func(yield func([]byte, error) bool) {
		off := 0
		defer func() { f.discard(off) }()
		for {
			i := bytes.IndexByte(f.buf[f.scan:], Delim)
			if i < 0 {
				f.scan = len(f.buf)
				break
			}
			end := f.scan + i
			if f.max > 0 && end-off > f.max {
				f.scan = off
				yield(nil, ErrLineTooLong)
				return
			}
			line := f.buf[off:end]
			off = end + 1
			f.scan = off
			if !yield(line, nil) {
				return
			}
		}
		if f.max > 0 && len(f.buf)-off > f.max {
			yield(nil, ErrLineTooLong)
		}
	}
}

// discard 滑动窗口，丢弃已消费的 n 字节
func (f *Framer) discard(n int) {
	if n == 0 {
		return
	}
	rest := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
	f.scan -= n
	if len(f.buf) == 0 && cap(f.buf) > 64<<10 {
		// 大行过后释放内存
		f.buf = nil
	}
}

// Pending 返回尚未终结的字节（别名，勿保留）
func (f *Framer) Pending() []byte { return f.buf }

// Len 返回缓冲的字节数
func (f *Framer) Len() int { return len(f.buf) }

// Reset 丢弃所有缓冲内容
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.scan = 0
}
