package server

import (
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/legamerdc/linelog/framer"
)

// ConnState 连接状态：Accepted → ReadablePending ⇄ Draining → Closed
type ConnState uint8

const (
	StateAccepted ConnState = iota
	StateReadablePending
	StateDraining
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateReadablePending:
		return "readable-pending"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn 表示一条已接受的客户端连接，仅在 poller 线程中访问
type Conn struct {
	ID       uint64
	Session  uuid.UUID // 仅用于日志关联
	Remote   string
	Accepted time.Time

	fd      int
	state   ConnState
	framer  *framer.Framer
	bytesIn int64
	records int64
}

func (c *Conn) FD() int          { return c.fd }
func (c *Conn) State() ConnState { return c.state }

// Pending 返回尚未终结的字节数
func (c *Conn) Pending() int { return c.framer.Len() }

// Records 返回已交给 sink 的记录数（含写入失败的）
func (c *Conn) Records() int64 { return c.records }

// Registry 跟踪存活连接：fd -> 下标，连接本体密集存放
type Registry struct {
	idx     map[int]int
	states  []*Conn
	nextID  uint64
	maxLine int
}

// NewRegistry maxLine 传给每条连接的 Framer
func NewRegistry(maxLine int) *Registry {
	return &Registry{
		idx:     make(map[int]int),
		states:  make([]*Conn, 0, 1024),
		maxLine: maxLine,
	}
}

// Register 为 fd 创建连接。fd 已存在时（不应发生）旧条目被替换。
func (r *Registry) Register(fd int, remote string) *Conn {
	r.nextID++
	c := &Conn{
		ID:       r.nextID,
		Session:  newSession(),
		Remote:   remote,
		Accepted: time.Now(),
		fd:       fd,
		state:    StateAccepted,
		framer:   framer.New(r.maxLine),
	}
	if i, ok := r.idx[fd]; ok {
		r.states[i] = c
		return c
	}
	r.idx[fd] = len(r.states)
	r.states = append(r.states, c)
	return c
}

// Unregister 移除 fd；重复调用返回 false，不报错
func (r *Registry) Unregister(fd int) (*Conn, bool) {
	i, ok := r.idx[fd]
	if !ok {
		return nil, false
	}
	c := r.states[i]
	// 从 dense 列表删除
	last := len(r.states) - 1
	r.states[i] = r.states[last]
	r.states[last] = nil
	r.states = r.states[:last]
	if i < len(r.states) {
		r.idx[r.states[i].fd] = i
	}
	delete(r.idx, fd)
	return c, true
}

func (r *Registry) Get(fd int) (*Conn, bool) {
	if i, ok := r.idx[fd]; ok {
		return r.states[i], true
	}
	return nil, false
}

func (r *Registry) Len() int { return len(r.states) }

// All 遍历快照，遍历期间可安全 Unregister
func (r *Registry) All() iter.Seq[*Conn] {
	snap := append([]*Conn(nil), r.states...)
	return func(yield func(*Conn) bool) {
		for _, c := range snap {
			if !yield(c) {
				return
			}
		}
	}
}

func newSession() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
