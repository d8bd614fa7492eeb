package server

import (
	"sync/atomic"
	"time"
)

// Stats 为运行时计数器。写入只来自 poller 线程，读取可跨 goroutine。
// nil *Stats 的方法均为空操作。
type Stats struct {
	start time.Time

	connsActive   atomic.Int64
	connsTotal    atomic.Int64
	connsRejected atomic.Int64
	acceptErrors  atomic.Int64
	bytesIn       atomic.Int64
	recordsOK     atomic.Int64
	recordsLost   atomic.Int64
	overflows     atomic.Int64
}

func newStats() *Stats { return &Stats{start: time.Now()} }

func (s *Stats) connOpened() {
	if s == nil {
		return
	}
	s.connsActive.Add(1)
	s.connsTotal.Add(1)
}

func (s *Stats) connClosed() {
	if s == nil {
		return
	}
	s.connsActive.Add(-1)
}

func (s *Stats) connRejected() {
	if s == nil {
		return
	}
	s.connsRejected.Add(1)
}

func (s *Stats) acceptError() {
	if s == nil {
		return
	}
	s.acceptErrors.Add(1)
}

func (s *Stats) received(n int) {
	if s == nil {
		return
	}
	s.bytesIn.Add(int64(n))
}

func (s *Stats) recordWritten() {
	if s == nil {
		return
	}
	s.recordsOK.Add(1)
}

func (s *Stats) recordDropped() {
	if s == nil {
		return
	}
	s.recordsLost.Add(1)
}

func (s *Stats) overflow() {
	if s == nil {
		return
	}
	s.overflows.Add(1)
}

// StatsSnapshot 某一时刻的计数器副本
type StatsSnapshot struct {
	Uptime              string `json:"uptime"`
	ConnectionsActive   int64  `json:"connections_active"`
	ConnectionsTotal    int64  `json:"connections_total"`
	ConnectionsRejected int64  `json:"connections_rejected"`
	AcceptErrors        int64  `json:"accept_errors"`
	BytesIn             int64  `json:"bytes_in"`
	RecordsWritten      int64  `json:"records_written"`
	RecordsDropped      int64  `json:"records_dropped"`
	LineOverflows       int64  `json:"line_overflows"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Uptime:              time.Since(s.start).Truncate(time.Second).String(),
		ConnectionsActive:   s.connsActive.Load(),
		ConnectionsTotal:    s.connsTotal.Load(),
		ConnectionsRejected: s.connsRejected.Load(),
		AcceptErrors:        s.acceptErrors.Load(),
		BytesIn:             s.bytesIn.Load(),
		RecordsWritten:      s.recordsOK.Load(),
		RecordsDropped:      s.recordsLost.Load(),
		LineOverflows:       s.overflows.Load(),
	}
}
