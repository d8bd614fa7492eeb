package sink

import (
	"math/rand"
	"time"
)

// backoff 是非阻塞的指数退避：不睡眠，只记录下一次允许尝试的时间点，
// 由调用方在 poller 线程中判断是否放行。
type backoff struct {
	initial time.Duration
	limit   time.Duration
	cur     time.Duration
	next    time.Time
	jitter  bool
}

func newBackoff(initial, limit time.Duration) *backoff {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if limit < initial {
		limit = initial
	}
	return &backoff{initial: initial, limit: limit, jitter: true}
}

// ready 报告 now 时刻是否允许再次尝试
func (b *backoff) ready(now time.Time) bool {
	return b.next.IsZero() || !now.Before(b.next)
}

// fail 记录一次失败，返回本次退避时长
func (b *backoff) fail(now time.Time) time.Duration {
	if b.cur == 0 {
		b.cur = b.initial
	} else {
		b.cur *= 2
		if b.cur > b.limit {
			b.cur = b.limit
		}
	}
	wait := b.cur
	if b.jitter {
		wait = addJitter(wait)
	}
	b.next = now.Add(wait)
	return wait
}

func (b *backoff) reset() {
	b.cur = 0
	b.next = time.Time{}
}

// addJitter ±25%
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := rand.Float64()*2*quarter - quarter
	out := time.Duration(float64(d) + delta)
	if out < time.Millisecond {
		out = time.Millisecond
	}
	return out
}
