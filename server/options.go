package server

// Options 为 reactor 配置
type Options struct {
	Network        string // tcp / tcp4 / tcp6
	Address        string // 监听主机，空表示全部接口
	Port           int    // 0 表示由内核分配
	Backlog        int
	RecvBuffer     int // 已接受连接的 SO_RCVBUF，0 为系统默认
	ReadBufferSize int // 单次 read 的中转缓冲
	MaxLineLength  int // 单行（不含分隔符）的上限，<=0 不限制
	MaxConnections int // <=0 不限制
}

const (
	DefaultBacklog        = 128
	DefaultReadBufferSize = 64 << 10
)

func (o Options) withDefaults() Options {
	if o.Network == "" {
		o.Network = "tcp"
	}
	if o.Backlog <= 0 {
		o.Backlog = DefaultBacklog
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	return o
}
